package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fsscore/zonescore/internal/domain"
)

// recordsFile is the on-disk layout of a YAML record file. Records nest
// under their snapshot and inherit its id:
//
//	snapshots:
//	  - snapshot_id: 1
//	    zones:
//	      - {zone_id: 1, name: Math, is_relevant: true}
//	    questions:
//	      - {question_id: 1, text: "2+2", score: 80, is_relevant: true, test_id: 1}
//	    memberships:
//	      - {zone_id: 1, question_id: 1}
type recordsFile struct {
	Snapshots []snapshotDoc `yaml:"snapshots"`
}

type snapshotDoc struct {
	SnapshotID  domain.SnapshotID `yaml:"snapshot_id"`
	Zones       []zoneDoc         `yaml:"zones"`
	Questions   []questionDoc     `yaml:"questions"`
	Memberships []membershipDoc   `yaml:"memberships"`
}

type zoneDoc struct {
	ZoneID     int    `yaml:"zone_id"`
	Name       string `yaml:"name"`
	IsRelevant bool   `yaml:"is_relevant"`
}

type questionDoc struct {
	QuestionID int    `yaml:"question_id"`
	Text       string `yaml:"text"`
	Score      *int   `yaml:"score"`
	IsRelevant bool   `yaml:"is_relevant"`
	TestID     int    `yaml:"test_id"`
}

type membershipDoc struct {
	ZoneID     int `yaml:"zone_id"`
	QuestionID int `yaml:"question_id"`
}

// LoadYAMLSource reads a YAML record file into a MemorySource.
func LoadYAMLSource(path string) (*MemorySource, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	return parseRecords(data)
}

// LoadYAMLSourceFromReader reads YAML records from r into a MemorySource.
func LoadYAMLSourceFromReader(r io.Reader) (*MemorySource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return parseRecords(data)
}

// parseRecords decodes strictly so that misspelled keys fail loudly, then
// validates every record while building the source.
func parseRecords(data []byte) (*MemorySource, error) {
	var doc recordsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	bundles := make([]domain.SnapshotRecords, 0, len(doc.Snapshots))
	for _, s := range doc.Snapshots {
		bundles = append(bundles, s.toRecords())
	}
	return NewMemorySource(bundles...)
}

func (s snapshotDoc) toRecords() domain.SnapshotRecords {
	rec := domain.SnapshotRecords{
		SnapshotID:  s.SnapshotID,
		Zones:       make([]domain.Zone, 0, len(s.Zones)),
		Questions:   make([]domain.Question, 0, len(s.Questions)),
		Memberships: make([]domain.ZoneMembership, 0, len(s.Memberships)),
	}
	for _, z := range s.Zones {
		rec.Zones = append(rec.Zones, domain.Zone{
			SnapshotID: s.SnapshotID,
			ZoneID:     z.ZoneID,
			Name:       z.Name,
			IsRelevant: z.IsRelevant,
		})
	}
	for _, q := range s.Questions {
		rec.Questions = append(rec.Questions, domain.Question{
			SnapshotID: s.SnapshotID,
			QuestionID: q.QuestionID,
			Text:       q.Text,
			Score:      q.Score,
			IsRelevant: q.IsRelevant,
			TestID:     q.TestID,
		})
	}
	for _, m := range s.Memberships {
		rec.Memberships = append(rec.Memberships, domain.ZoneMembership{
			SnapshotID: s.SnapshotID,
			ZoneID:     m.ZoneID,
			QuestionID: m.QuestionID,
		})
	}
	return rec
}
