package store

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/stepherg/rayshell/internal/metrics"
	"github.com/stepherg/rayshell/internal/model"
)

// Sort keys of the profile list.
const (
	SortRemarks    = "remarks"
	SortAddress    = "address"
	SortPort       = "port"
	SortConfigType = "configType"
	SortNetwork    = "network"
)

// ProfileAPI is the core's profile surface.
type ProfileAPI interface {
	GetProfiles(ctx context.Context, subID string) ([]model.Profile, error)
	AddProfile(ctx context.Context, p model.Profile) error
	UpdateProfile(ctx context.Context, p model.Profile) error
	DeleteProfiles(ctx context.Context, ids []string) error
	SetActiveProfile(ctx context.Context, id string) error
	ImportFromText(ctx context.Context, text string) (int, error)
	ExportShareLink(ctx context.Context, id string) (string, error)
	TestProfiles(ctx context.Context, ids []string) ([]model.SpeedTestResult, error)
	TestAllProfiles(ctx context.Context) ([]model.SpeedTestResult, error)
}

// ProfileStore is the profile list with its selection, speed test results
// and the set of profiles under test.
type ProfileStore struct {
	*Collection[model.Profile, string]

	api       ProfileAPI
	Selection *Selection
	Results   *ResultCache[string, model.SpeedTestResult]
	Testing   *Tracker
}

func NewProfileStore(api ProfileAPI, m *metrics.Metrics) *ProfileStore {
	s := &ProfileStore{
		api:       api,
		Selection: NewSelection(SortRemarks),
		Results:   NewSpeedResults(),
		Testing:   NewTracker("profiles", m),
	}
	s.Collection = NewCollection("profiles", func(ctx context.Context, subID string) ([]model.Profile, error) {
		if subID == AllGroups {
			subID = ""
		}
		return api.GetProfiles(ctx, subID)
	}, m)
	s.Collection.afterLoad = func(items []model.Profile) {
		s.Selection.Retain(profileIDs(items))
	}
	return s
}

// Refresh loads the group chosen in the selection's filter.
func (s *ProfileStore) Refresh(ctx context.Context) error {
	return s.Load(ctx, s.Selection.Filter().SubID)
}

func (s *ProfileStore) Create(ctx context.Context, p model.Profile) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.AddProfile(ctx, p) })
}

func (s *ProfileStore) Update(ctx context.Context, p model.Profile) error {
	return s.Mutate(ctx, func(ctx context.Context) error { return s.api.UpdateProfile(ctx, p) })
}

// Delete removes ids on the core. The deleted ids leave the selection before
// the reload starts.
func (s *ProfileStore) Delete(ctx context.Context, ids []string) error {
	return s.Mutate(ctx, func(ctx context.Context) error {
		if err := s.api.DeleteProfiles(ctx, ids); err != nil {
			return err
		}
		s.Selection.Remove(ids...)
		return nil
	})
}

// SetActive makes id the active outbound. The list is not reloaded.
func (s *ProfileStore) SetActive(ctx context.Context, id string) error {
	return s.api.SetActiveProfile(ctx, id)
}

// Import adds the profiles found in text and returns how many there were.
func (s *ProfileStore) Import(ctx context.Context, text string) (int, error) {
	var n int
	err := s.Mutate(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.api.ImportFromText(ctx, text)
		return err
	})
	return n, err
}

func (s *ProfileStore) ExportShareLink(ctx context.Context, id string) (string, error) {
	return s.api.ExportShareLink(ctx, id)
}

// Test measures ids and merges the results into the cache.
func (s *ProfileStore) Test(ctx context.Context, ids []string) error {
	return s.Testing.TrackAll(ctx, ids, func(ctx context.Context) error {
		results, err := s.api.TestProfiles(ctx, ids)
		if err != nil {
			return err
		}
		s.Results.ApplyBatch(results)
		return nil
	})
}

// TestSelected tests the selected profiles.
func (s *ProfileStore) TestSelected(ctx context.Context) error {
	return s.Test(ctx, s.Selection.IDs())
}

// TestAll measures every profile and merges the results into the cache.
func (s *ProfileStore) TestAll(ctx context.Context) error {
	return s.Testing.TrackAll(ctx, profileIDs(s.Items()), func(ctx context.Context) error {
		results, err := s.api.TestAllProfiles(ctx)
		if err != nil {
			return err
		}
		s.Results.ApplyBatch(results)
		return nil
	})
}

// Visible is the list as shown: matched against the search text and sorted
// by the selection's sort key.
func (s *ProfileStore) Visible() []model.Profile {
	f := s.Selection.Filter()
	items := s.Items()
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		items = slices.DeleteFunc(items, func(p model.Profile) bool {
			return !strings.Contains(strings.ToLower(p.Remarks), q) &&
				!strings.Contains(strings.ToLower(p.Address), q)
		})
	}
	if less := profileOrder(f.SortKey); less != nil {
		slices.SortStableFunc(items, func(a, b model.Profile) int {
			if f.SortDir == Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	return items
}

// VisibleIDs is the ids of Visible, for the select-all affordance.
func (s *ProfileStore) VisibleIDs() []string {
	return profileIDs(s.Visible())
}

// ToggleAllVisible applies Selection.ToggleAll to the visible profiles.
func (s *ProfileStore) ToggleAllVisible() {
	s.Selection.ToggleAll(s.VisibleIDs())
}

func profileOrder(key string) func(a, b model.Profile) int {
	switch key {
	case SortRemarks:
		return func(a, b model.Profile) int { return cmp.Compare(strings.ToLower(a.Remarks), strings.ToLower(b.Remarks)) }
	case SortAddress:
		return func(a, b model.Profile) int { return cmp.Compare(strings.ToLower(a.Address), strings.ToLower(b.Address)) }
	case SortPort:
		return func(a, b model.Profile) int { return cmp.Compare(a.Port, b.Port) }
	case SortConfigType:
		return func(a, b model.Profile) int { return cmp.Compare(a.ConfigType, b.ConfigType) }
	case SortNetwork:
		return func(a, b model.Profile) int { return cmp.Compare(a.Transport.Network, b.Transport.Network) }
	}
	return nil
}

func profileIDs(items []model.Profile) []string {
	ids := make([]string, len(items))
	for i, p := range items {
		ids[i] = p.ID
	}
	return ids
}
