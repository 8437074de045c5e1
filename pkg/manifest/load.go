package manifest

import (
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/logging"
)

// File names looked up at the root of a mod, in order.
const (
	YAMLFile    = "mod.yaml"
	XMLFile     = "installinfo.xml"
	altYAMLFile = "mod.yml"
)

// Load reads and validates the manifest at the root of a mod.
func Load(fs afero.Fs) (*Manifest, error) {
	logger := logging.GetLogger("manifest")

	for _, name := range []string{YAMLFile, altYAMLFile, XMLFile} {
		data, err := afero.ReadFile(fs, name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, errors.ErrManifest, "cannot read %s", name)
		}
		logger.Debug().Str("file", name).Msg("Reading mod manifest")

		var m *Manifest
		if name == XMLFile {
			m, err = ParseXML(data)
		} else {
			m, err = ParseYAML(data)
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifest, "invalid %s", name).WithDetail("file", name)
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, errors.Newf(errors.ErrNotFound, "mod has neither %s nor %s", YAMLFile, XMLFile)
}

// ParseYAML decodes a mod.yaml document.
func ParseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseXML decodes an installinfo.xml document:
//
//	<InstallInfo Name="hats" Version="1.2" Author="me">
//	  <Description>Adds hats.</Description>
//	  <Files>
//	    <File Source="data/chars.rtb" Priority="first"/>
//	  </Files>
//	  <Directories>
//	    <Directory Source="textures" Destination="data/textures"/>
//	  </Directories>
//	  <Messages>
//	    <Record Id="hat">
//	      <Component Name="name" Group="accessory_name">
//	        <Text Lang="en">Hat</Text>
//	      </Component>
//	    </Record>
//	  </Messages>
//	</InstallInfo>
func ParseXML(data []byte) (*Manifest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.SelectElement("InstallInfo")
	if root == nil {
		return nil, errors.New(errors.ErrManifest, "missing InstallInfo element")
	}

	m := &Manifest{
		Name:    root.SelectAttrValue("Name", ""),
		Version: root.SelectAttrValue("Version", ""),
		Author:  root.SelectAttrValue("Author", ""),
	}
	if d := root.SelectElement("Description"); d != nil {
		m.Description = strings.TrimSpace(d.Text())
	}

	for _, el := range root.FindElements("./Files/File") {
		overwrite, err := boolAttr(el, "Overwrite")
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, File{
			Source:      el.SelectAttrValue("Source", ""),
			Destination: el.SelectAttrValue("Destination", ""),
			Kind:        el.SelectAttrValue("Kind", ""),
			Priority:    Priority(strings.ToLower(el.SelectAttrValue("Priority", ""))),
			Overwrite:   overwrite,
		})
	}

	for _, el := range root.FindElements("./Directories/Directory") {
		overwrite, err := boolAttr(el, "Overwrite")
		if err != nil {
			return nil, err
		}
		m.Directories = append(m.Directories, Directory{
			Source:      el.SelectAttrValue("Source", ""),
			Destination: el.SelectAttrValue("Destination", ""),
			Overwrite:   overwrite,
		})
	}

	for _, rel := range root.FindElements("./Messages/Record") {
		rec := Record{ID: rel.SelectAttrValue("Id", "")}
		for _, cel := range rel.SelectElements("Component") {
			c := Component{
				Name:      cel.SelectAttrValue("Name", ""),
				Group:     cel.SelectAttrValue("Group", ""),
				Mode:      strings.ToLower(cel.SelectAttrValue("Mode", "")),
				DependsOn: cel.SelectAttrValue("DependsOn", ""),
				Text:      make(map[string]string),
			}
			if v := cel.SelectAttrValue("Number", ""); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, errors.Newf(errors.ErrManifest, "component %s: Number %q is not an integer", c.Name, v)
				}
				c.Number = &n
			}
			for _, tel := range cel.SelectElements("Text") {
				c.Text[tel.SelectAttrValue("Lang", "")] = tel.Text()
			}
			rec.Components = append(rec.Components, c)
		}
		m.Messages = append(m.Messages, rec)
	}
	return m, nil
}

func boolAttr(el *etree.Element, name string) (bool, error) {
	v := el.SelectAttrValue(name, "")
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Newf(errors.ErrManifest, "%s: %s=%q is not a boolean", el.Tag, name, v)
	}
	return b, nil
}
