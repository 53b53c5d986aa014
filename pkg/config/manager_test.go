package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSection is a test implementation of the Section interface
type mockSection struct {
	id          string
	data        map[string]interface{}
	validateErr error
	resets      int
}

func (m *mockSection) ID() string                                { return m.id }
func (m *mockSection) Title() string                             { return "mock " + m.id }
func (m *mockSection) Description() string                       { return "" }
func (m *mockSection) Data() map[string]interface{}              { return m.data }
func (m *mockSection) SetData(data map[string]interface{}) error { m.data = data; return nil }
func (m *mockSection) Validate() error                           { return m.validateErr }
func (m *mockSection) Reset()                                    { m.resets++; m.data = map[string]interface{}{} }

// mockStore is a test implementation of the Store interface
type mockStore struct {
	sections map[string]map[string]interface{}
	loadErr  error
	saveErr  error
	saves    int
}

func newMockStore() *mockStore {
	return &mockStore{sections: make(map[string]map[string]interface{})}
}

func (m *mockStore) Load() error { return m.loadErr }

func (m *mockStore) Save() error {
	m.saves++
	return m.saveErr
}

func (m *mockStore) GetSection(sectionID string) (map[string]interface{}, error) {
	if data, ok := m.sections[sectionID]; ok {
		return data, nil
	}
	return map[string]interface{}{}, nil
}

func (m *mockStore) SetSection(sectionID string, data map[string]interface{}) error {
	m.sections[sectionID] = data
	return nil
}

func (m *mockStore) GetAll() (map[string]map[string]interface{}, error) { return m.sections, nil }

func (m *mockStore) SetAll(data map[string]map[string]interface{}) error {
	m.sections = data
	return nil
}

func TestManager_RegisterSection(t *testing.T) {
	manager := NewManager(newMockStore())

	require.NoError(t, manager.RegisterSection(&mockSection{id: "b"}))
	require.NoError(t, manager.RegisterSection(&mockSection{id: "a"}))

	assert.Error(t, manager.RegisterSection(&mockSection{id: "a"}), "duplicate id")
	assert.Error(t, manager.RegisterSection(&mockSection{id: ""}), "empty id")

	sections := manager.GetSections()
	require.Len(t, sections, 2)
	assert.Equal(t, "b", sections[0].ID(), "registration order is preserved")
	assert.Equal(t, "a", sections[1].ID())

	_, ok := manager.GetSection("missing")
	assert.False(t, ok)
}

func TestManager_LoadAll(t *testing.T) {
	t.Run("applies stored data and keeps defaults otherwise", func(t *testing.T) {
		store := newMockStore()
		store.sections["stored"] = map[string]interface{}{"k": "v"}
		manager := NewManager(store)

		stored := &mockSection{id: "stored"}
		untouched := &mockSection{id: "untouched", data: map[string]interface{}{"default": true}}
		require.NoError(t, manager.RegisterSection(stored))
		require.NoError(t, manager.RegisterSection(untouched))

		require.NoError(t, manager.LoadAll())
		assert.Equal(t, "v", stored.data["k"])
		assert.Equal(t, true, untouched.data["default"])
	})

	t.Run("store failure", func(t *testing.T) {
		store := newMockStore()
		store.loadErr = errors.New("disk gone")
		assert.ErrorContains(t, NewManager(store).LoadAll(), "disk gone")
	})

	t.Run("invalid stored data", func(t *testing.T) {
		store := newMockStore()
		store.sections["bad"] = map[string]interface{}{"x": 1}
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{id: "bad", validateErr: errors.New("nope")}))

		assert.ErrorContains(t, manager.LoadAll(), "invalid section bad")
	})
}

func TestManager_SaveAll(t *testing.T) {
	store := newMockStore()
	manager := NewManager(store)
	require.NoError(t, manager.RegisterSection(&mockSection{id: "s", data: map[string]interface{}{"n": 1}}))

	require.NoError(t, manager.SaveAll())
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, store.sections["s"]["n"])

	invalid := NewManager(newMockStore())
	require.NoError(t, invalid.RegisterSection(&mockSection{id: "v", validateErr: errors.New("bad")}))
	assert.Error(t, invalid.SaveAll())
}

func TestManager_ResetAll(t *testing.T) {
	manager := NewManager(newMockStore())
	a := &mockSection{id: "a", data: map[string]interface{}{"x": 1}}
	b := &mockSection{id: "b"}
	require.NoError(t, manager.RegisterSection(a))
	require.NoError(t, manager.RegisterSection(b))

	manager.ResetAll()
	assert.Equal(t, 1, a.resets)
	assert.Equal(t, 1, b.resets)
	assert.Empty(t, a.data)
}
