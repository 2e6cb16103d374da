package activities

import (
	"context"
	"sort"
	"sync"
)

// TestRepo is an in-memory activity store used in unit tests across
// packages. It mirrors the repo semantics, including the one-activity-
// per-external-id conflict check.
type TestRepo struct {
	mutex      sync.Mutex
	Activities map[string]Activity // keyed by userID|date|id
	Index      map[string]string   // userID|provider|externalID -> activity key
}

func NewTestRepo() *TestRepo {
	return &TestRepo{
		Activities: make(map[string]Activity),
		Index:      make(map[string]string),
	}
}

func activityKey(userID, date, id string) string {
	return userID + "|" + date + "|" + id
}

func indexKey(userID, provider, externalID string) string {
	return userID + "|" + provider + "|" + externalID
}

func (r *TestRepo) Save(_ context.Context, activity *Activity) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := activityKey(activity.UserID, activity.Date, activity.ID)
	if activity.HasExternalSource() {
		src := activity.Perf.Source
		idxKey := indexKey(activity.UserID, src.Provider, src.ExternalID)
		if existing, ok := r.Index[idxKey]; ok && existing != key {
			return ErrConflict
		}
		r.Index[idxKey] = key
	}

	r.Activities[key] = *activity
	return nil
}

func (r *TestRepo) GetByDateRange(_ context.Context, userID, fromDate, toDate string) ([]Activity, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	found := make([]Activity, 0)
	for _, a := range r.Activities {
		if a.UserID == userID && a.Date >= fromDate && a.Date <= toDate {
			found = append(found, a)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Date != found[j].Date {
			return found[i].Date < found[j].Date
		}
		return found[i].ID < found[j].ID
	})
	return found, nil
}

func (r *TestRepo) GetByExternalID(_ context.Context, userID, provider, externalID string) (*Activity, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idxKey := indexKey(userID, provider, externalID)
	key, ok := r.Index[idxKey]
	if !ok {
		return nil, ErrActivityNotFound
	}
	a, ok := r.Activities[key]
	if !ok {
		// dangling entry, drop it so the external id can be claimed again
		delete(r.Index, idxKey)
		return nil, ErrActivityNotFound
	}
	return &a, nil
}

func (r *TestRepo) Get(_ context.Context, userID, date, id string) (*Activity, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	a, ok := r.Activities[activityKey(userID, date, id)]
	if !ok {
		return nil, ErrActivityNotFound
	}
	return &a, nil
}

func (r *TestRepo) Delete(_ context.Context, userID, date, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := activityKey(userID, date, id)
	if _, ok := r.Activities[key]; !ok {
		return ErrActivityNotFound
	}
	delete(r.Activities, key)
	for idxKey, target := range r.Index {
		if target == key {
			delete(r.Index, idxKey)
		}
	}
	return nil
}

func (r *TestRepo) Count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Activities)
}
