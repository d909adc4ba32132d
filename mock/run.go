package mock

import "github.com/reengageai/reengage"

type RunStore struct {
	SaveFn func(report reengage.RunReport) error

	ByIdFn func(id string) (reengage.RunReport, error)

	LastFn func() (reengage.RunReport, error)
}

func (s *RunStore) Save(report reengage.RunReport) error {
	return s.SaveFn(report)
}

func (s *RunStore) ById(id string) (reengage.RunReport, error) {
	return s.ByIdFn(id)
}

func (s *RunStore) Last() (reengage.RunReport, error) {
	return s.LastFn()
}
