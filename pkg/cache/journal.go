package cache

import (
	"os"
	"path"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

const (
	journalFile = "journal.toml"
	filesDir    = "files"
)

// backupRecord remembers whether a path existed before the commit, so
// restoring either copies it back or deletes it.
type backupRecord struct {
	Path    string `toml:"path"`
	Existed bool   `toml:"existed"`
}

type journal struct {
	Backups []backupRecord `toml:"backups"`
}

func backupPath(p string) string {
	return path.Join(filesDir, p)
}

func writeJournal(fs afero.Fs, records []backupRecord) error {
	data, err := toml.Marshal(journal{Backups: records})
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, journalFile, data, 0644)
}

// readJournal returns the records of an interrupted commit, or nil when
// there is none.
func readJournal(fs afero.Fs) ([]backupRecord, error) {
	data, err := afero.ReadFile(fs, journalFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var j journal
	if err := toml.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return j.Backups, nil
}
