package manifest

import (
	"path"
	"strings"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/msgsync"
)

// Priority orders file steps within a plan.
type Priority string

const (
	PriorityFirst   Priority = "first"
	PriorityDefault Priority = "default"
	PriorityLast    Priority = "last"
)

// Manifest describes one mod.
type Manifest struct {
	Name        string      `yaml:"name"`
	Version     string      `yaml:"version"`
	Author      string      `yaml:"author,omitempty"`
	Description string      `yaml:"description,omitempty"`
	Files       []File      `yaml:"files,omitempty"`
	Directories []Directory `yaml:"directories,omitempty"`
	Messages    []Record    `yaml:"messages,omitempty"`
}

// File installs one mod file. Kind overrides extension-based detection;
// "raw" forces a byte copy.
type File struct {
	Source      string   `yaml:"source"`
	Destination string   `yaml:"destination,omitempty"`
	Kind        string   `yaml:"kind,omitempty"`
	Priority    Priority `yaml:"priority,omitempty"`
	Overwrite   bool     `yaml:"overwrite,omitempty"`
}

// Directory installs every file below Source.
type Directory struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination,omitempty"`
	Overwrite   bool   `yaml:"overwrite,omitempty"`
}

// Record is a logical item whose components are messages.
type Record struct {
	ID         string      `yaml:"id"`
	Components []Component `yaml:"components"`
}

// Component is one message of a record.
type Component struct {
	Name      string            `yaml:"name"`
	Group     string            `yaml:"group"`
	Mode      string            `yaml:"mode,omitempty"`
	Text      map[string]string `yaml:"text"`
	Number    *int              `yaml:"number,omitempty"`
	DependsOn string            `yaml:"depends_on,omitempty"`
}

// RawKind forces a byte copy regardless of extension.
const RawKind = codec.RawKind

// Validate checks the manifest and fills defaults.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New(errors.ErrManifest, "mod name is required")
	}
	if strings.TrimSpace(m.Version) == "" {
		return errors.Newf(errors.ErrManifest, "mod %s has no version", m.Name).WithDetail("mod", m.Name)
	}

	for i := range m.Files {
		f := &m.Files[i]
		if f.Source == "" {
			return errors.Newf(errors.ErrManifest, "file entry %d has no source", i).WithDetail("mod", m.Name)
		}
		if f.Destination == "" {
			f.Destination = f.Source
		}
		if f.Priority == "" {
			f.Priority = PriorityDefault
		}
		switch f.Priority {
		case PriorityFirst, PriorityDefault, PriorityLast:
		default:
			return errors.Newf(errors.ErrManifest, "file %s has unknown priority %q", f.Source, f.Priority).
				WithDetail("mod", m.Name)
		}
		if err := checkRelative(m.Name, f.Source); err != nil {
			return err
		}
		if err := checkRelative(m.Name, f.Destination); err != nil {
			return err
		}
	}

	for i := range m.Directories {
		d := &m.Directories[i]
		if d.Source == "" {
			return errors.Newf(errors.ErrManifest, "directory entry %d has no source", i).WithDetail("mod", m.Name)
		}
		if d.Destination == "" {
			d.Destination = d.Source
		}
		if err := checkRelative(m.Name, d.Source); err != nil {
			return err
		}
		if err := checkRelative(m.Name, d.Destination); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, r := range m.Messages {
		if r.ID == "" {
			return errors.New(errors.ErrManifest, "message record without id").WithDetail("mod", m.Name)
		}
		if seen[r.ID] {
			return errors.Newf(errors.ErrManifest, "duplicate message record %s", r.ID).WithDetail("mod", m.Name)
		}
		seen[r.ID] = true

		names := make(map[string]bool, len(r.Components))
		for _, c := range r.Components {
			names[c.Name] = true
		}
		for i := range r.Components {
			c := &r.Components[i]
			if c.Mode == "" {
				c.Mode = string(msgsync.ModeIndex)
			}
			if !msgsync.Mode(c.Mode).Valid() {
				return errors.Newf(errors.ErrManifest, "record %s component %s has unknown mode %q", r.ID, c.Name, c.Mode).
					WithDetail("mod", m.Name)
			}
			if c.DependsOn != "" && !names[c.DependsOn] {
				return errors.Newf(errors.ErrManifest, "record %s component %s depends on unknown component %s",
					r.ID, c.Name, c.DependsOn).WithDetail("mod", m.Name)
			}
		}
	}
	return nil
}

func checkRelative(mod, p string) error {
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.Newf(errors.ErrManifest, "path %s escapes the mod or game directory", p).
			WithDetail("mod", mod).
			WithDetail("path", p)
	}
	return nil
}

// Records converts the message records for the synchronizer.
func (m *Manifest) Records() []msgsync.Record {
	out := make([]msgsync.Record, 0, len(m.Messages))
	for _, r := range m.Messages {
		rec := msgsync.Record{ID: r.ID}
		for _, c := range r.Components {
			rec.Components = append(rec.Components, msgsync.Component{
				Name:      c.Name,
				Group:     c.Group,
				Mode:      msgsync.Mode(c.Mode),
				Text:      msgsync.Text(c.Text),
				Number:    c.Number,
				DependsOn: c.DependsOn,
			})
		}
		out = append(out, rec)
	}
	return out
}
