package frontier

import (
	"context"
	"fmt"

	"github.com/thep200/github-frontier/internal/model"
)

// Stats is a snapshot of the queue sizes.
type Stats struct {
	Discovered      int64
	Fetched         int64
	PendingExpand   int64
	PermanentErrors int64
	DroppedFetches  int64
	Owners          int64
}

// Expanded counts fetched repositories that are neither waiting for expansion
// nor excluded from it.
func (s Stats) Expanded() int64 {
	return s.Fetched - s.PendingExpand - s.PermanentErrors
}

func (s Stats) String() string {
	return fmt.Sprintf("discovered=%d fetched=%d pending_expand=%d expanded=%d permanent_errors=%d dropped=%d owners=%d",
		s.Discovered, s.Fetched, s.PendingExpand, s.Expanded(), s.PermanentErrors, s.DroppedFetches, s.Owners)
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		m   interface{}
		dst *int64
	}{
		{&model.NewRepo{}, &st.Discovered},
		{&model.Repo{}, &st.Fetched},
		{&model.RepoTodo{}, &st.PendingExpand},
		{&model.RepoError{}, &st.PermanentErrors},
		{&model.FetchError{}, &st.DroppedFetches},
		{&model.Owner{}, &st.Owners},
	}
	for _, c := range counts {
		if err := s.conn(ctx).Model(c.m).Count(c.dst).Error; err != nil {
			return Stats{}, fmt.Errorf("frontier: count %T: %w", c.m, err)
		}
	}
	return st, nil
}
