package manifest

import (
	"path"

	"github.com/spf13/afero"

	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/filesystem"
)

// Step is one file the install engine processes.
type Step struct {
	Source      string
	Destination string
	Kind        string
	Overwrite   bool
}

// Plan returns the ordered file steps of a validated manifest. Directory
// entries are expanded against the mod filesystem.
func (m *Manifest) Plan(mod afero.Fs) ([]Step, error) {
	var steps []Step
	for _, p := range []Priority{PriorityFirst, PriorityDefault, PriorityLast} {
		for _, f := range m.Files {
			if f.Priority != p {
				continue
			}
			steps = append(steps, Step{
				Source:      filesystem.Clean(f.Source),
				Destination: filesystem.Clean(f.Destination),
				Kind:        f.Kind,
				Overwrite:   f.Overwrite,
			})
		}
	}

	for _, d := range m.Directories {
		files, err := filesystem.ListFiles(mod, d.Source)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifest, "cannot list directory %s", d.Source).
				WithDetail("mod", m.Name)
		}
		for _, f := range files {
			steps = append(steps, Step{
				Source:      filesystem.Clean(path.Join(d.Source, f)),
				Destination: filesystem.Clean(path.Join(d.Destination, f)),
				Overwrite:   d.Overwrite,
			})
		}
	}
	return steps, nil
}

// Destinations lists every game path the plan writes.
func Destinations(steps []Step) map[string]bool {
	out := make(map[string]bool, len(steps))
	for _, s := range steps {
		out[s.Destination] = true
	}
	return out
}
