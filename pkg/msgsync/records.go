package msgsync

import (
	"github.com/arthur-debert/tablepatch/pkg/errors"
)

// Component is one message of a logical record, such as a name or a
// description. A component with DependsOn set takes the id allocated for
// the named component of the same record as its name argument.
type Component struct {
	Name      string
	Group     string
	Mode      Mode
	Text      Text
	Number    *int
	DependsOn string
}

// Record groups the components of one logical item.
type Record struct {
	ID         string
	Components []Component
}

// Result maps record id and component name to the allocated message id.
type Result map[string]map[string]int32

// ID returns the allocated id for a component.
func (r Result) ID(record, component string) (int32, bool) {
	ids, ok := r[record]
	if !ok {
		return 0, false
	}
	id, ok := ids[component]
	return id, ok
}

func (r Result) set(record, component string, id int32) {
	if r[record] == nil {
		r[record] = make(map[string]int32)
	}
	r[record][component] = id
}

// WriteRecords writes every independent component across all records, then
// every dependent one.
func (s *Synchronizer) WriteRecords(records []Record) (Result, error) {
	result := make(Result)

	for _, rec := range records {
		for _, c := range rec.Components {
			if c.DependsOn != "" {
				continue
			}
			id, err := s.WriteMessage(c.Text, c.Group, c.Mode, Args{Number: c.Number})
			if err != nil {
				return nil, errors.Wrapf(err, errors.GetErrorCode(err), "record %s component %s", rec.ID, c.Name).
					WithDetail("record", rec.ID)
			}
			result.set(rec.ID, c.Name, id)
		}
	}

	for _, rec := range records {
		for _, c := range rec.Components {
			if c.DependsOn == "" {
				continue
			}
			dep, ok := result.ID(rec.ID, c.DependsOn)
			if !ok {
				return nil, errors.Newf(errors.ErrInvalidInput,
					"record %s: component %s depends on %s, which was not written", rec.ID, c.Name, c.DependsOn).
					WithDetail("record", rec.ID).
					WithDetail("component", c.Name)
			}
			n := int(dep)
			id, err := s.WriteMessage(c.Text, c.Group, c.Mode, Args{Number: &n})
			if err != nil {
				return nil, errors.Wrapf(err, errors.GetErrorCode(err), "record %s component %s", rec.ID, c.Name).
					WithDetail("record", rec.ID)
			}
			result.set(rec.ID, c.Name, id)
		}
	}
	return result, nil
}
