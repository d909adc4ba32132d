package persistent

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/reengageai/reengage"
	"github.com/tidwall/buntdb"
)

const runTTL = 30 * 24 * time.Hour // 30 days

const lastRunKey = "run:last"

// RunStore keeps batch run reports in buntdb. Reports expire after 30 days.
type RunStore struct {
	Buntdb *buntdb.DB
}

var _ reengage.RunStore = (*RunStore)(nil)

func (s *RunStore) Save(report reengage.RunReport) error {
	serialized, err := sonic.Marshal(report)
	if err != nil {
		return fmt.Errorf("serialize run report: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		expireOptions := &buntdb.SetOptions{Expires: true, TTL: runTTL}

		_, _, err := tx.Set("run:"+report.Id, string(serialized), expireOptions)
		if err != nil {
			return fmt.Errorf("set run: %w", err)
		}
		_, _, err = tx.Set(lastRunKey, report.Id, expireOptions)
		if err != nil {
			return fmt.Errorf("set last run id: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

func (s *RunStore) ById(id string) (reengage.RunReport, error) {
	var report reengage.RunReport
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		return getRun(tx, id, &report)
	})
	if err != nil {
		return reengage.RunReport{}, mapRunError(err)
	}
	return report, nil
}

func (s *RunStore) Last() (reengage.RunReport, error) {
	var report reengage.RunReport
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		id, err := tx.Get(lastRunKey)
		if err != nil {
			return fmt.Errorf("get last run id: %w", err)
		}
		return getRun(tx, id, &report)
	})
	if err != nil {
		return reengage.RunReport{}, mapRunError(err)
	}
	return report, nil
}

func getRun(tx *buntdb.Tx, id string, report *reengage.RunReport) error {
	serialized, err := tx.Get("run:" + id)
	if err != nil {
		return fmt.Errorf("get serialized run: %w", err)
	}
	if err := sonic.UnmarshalString(serialized, report); err != nil {
		return fmt.Errorf("deserialize run: %w", err)
	}
	return nil
}

func mapRunError(err error) error {
	if errors.Is(err, buntdb.ErrNotFound) {
		return reengage.ErrRunNotFound
	}
	return fmt.Errorf("buntdb view: %w", err)
}
