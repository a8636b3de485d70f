package service

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/model"
)

// fakeUsageRepo keeps usage entries in memory, keyed by user and model.
type fakeUsageRepo struct {
	entries   map[string]*model.UsageEntry
	saveErr   error
	saveCalls int
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{entries: make(map[string]*model.UsageEntry)}
}

func usageKey(userID, modelTag string) string { return userID + "/" + modelTag }

func (f *fakeUsageRepo) GetOrCreateEntry(_ context.Context, userID, modelTag string) (*model.UsageEntry, error) {
	key := usageKey(userID, modelTag)
	if e, ok := f.entries[key]; ok {
		copy := *e
		return &copy, nil
	}
	e := &model.UsageEntry{Model: modelTag}
	f.entries[key] = e
	copy := *e
	return &copy, nil
}

func (f *fakeUsageRepo) SaveEntry(_ context.Context, userID string, e *model.UsageEntry) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	copy := *e
	f.entries[usageKey(userID, e.Model)] = &copy
	return nil
}

func (f *fakeUsageRepo) ListEntries(_ context.Context, userID string) ([]model.UsageEntry, error) {
	var out []model.UsageEntry
	for key, e := range f.entries {
		if key == usageKey(userID, e.Model) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeUsageRepo) EnsureEntries(_ context.Context, userID string, modelTags []string) error {
	for _, tag := range modelTags {
		key := usageKey(userID, tag)
		if _, ok := f.entries[key]; !ok {
			f.entries[key] = &model.UsageEntry{Model: tag}
		}
	}
	return nil
}

// fakeConfigRepo is an in-memory key -> JSON document store.
type fakeConfigRepo struct {
	values map[string]json.RawMessage
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{values: make(map[string]json.RawMessage)}
}

func (f *fakeConfigRepo) Get(_ context.Context, key string) (json.RawMessage, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (f *fakeConfigRepo) Upsert(_ context.Context, key string, value json.RawMessage) error {
	f.values[key] = value
	return nil
}

func (f *fakeConfigRepo) set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshaling fake config value: %v", err))
	}
	f.values[key] = raw
}
