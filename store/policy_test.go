package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/qfuzz/types"
	"github.com/zeu5/qfuzz/util"
	"golang.org/x/exp/rand"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func sampleSpace(t *testing.T) *types.StateSpace {
	t.Helper()
	space := types.NewStateSpace(newRand())
	inputs := []string{"", "var", "var x", "var x =", "f(1, 2);"}
	for i, in := range inputs {
		s := space.Get(in)
		for j := 0; j <= i; j++ {
			s.Policy.NextAction()
		}
		s.Policy.Update('a', 0.3, float64(i))
		s.Policy.Update(';', -0.2, -1)
		s.Policy.Update('"', 1.7, 22)
	}
	return space
}

func TestPolicyStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ps := NewPolicyStore(dir, nil)
	space := sampleSpace(t)
	require.NoError(t, ps.Save(space))

	loaded, err := ps.Load(newRand())
	require.NoError(t, err)
	require.Equal(t, space.Len(), loaded.Len())

	for i, s := range space.States() {
		l := loaded.States()[i]
		assert.Equal(t, s.Key, l.Key)
		assert.Equal(t, s.ID, l.ID)
		assert.Equal(t, s.Policy.TimeStep(), l.Policy.TimeStep())
		assert.Equal(t, s.Policy.QTable().Values(), l.Policy.QTable().Values())
	}
	assert.NoFileExists(t, util.TempPath(ps.Path()))
}

func TestPolicyStoreLoadMissing(t *testing.T) {
	ps := NewPolicyStore(filepath.Join(t.TempDir(), "trainer"), nil)
	space, err := ps.Load(newRand())
	require.NoError(t, err)
	assert.Equal(t, 0, space.Len())
}

func TestPolicyStoreInterruptedSave(t *testing.T) {
	dir := t.TempDir()
	ps := NewPolicyStore(dir, nil)
	require.NoError(t, ps.Save(sampleSpace(t)))
	before, err := os.ReadFile(ps.Path())
	require.NoError(t, err)

	// a crash before the rename leaves only a stale temporary file behind
	require.NoError(t, os.WriteFile(util.TempPath(ps.Path()), []byte(`[{"key":`), 0644))
	after, err := os.ReadFile(ps.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, err = ps.Load(newRand())
	require.NoError(t, err)

	// the next save overwrites the stale file
	require.NoError(t, ps.Save(sampleSpace(t)))
	assert.NoFileExists(t, util.TempPath(ps.Path()))
}

func TestPolicyStoreFailedSaveKeepsCanonical(t *testing.T) {
	dir := t.TempDir()
	ps := NewPolicyStore(dir, nil)
	require.NoError(t, ps.Save(sampleSpace(t)))
	before, err := os.ReadFile(ps.Path())
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(util.TempPath(ps.Path()), 0755))
	space := sampleSpace(t)
	space.Get("new state ((")
	require.Error(t, ps.Save(space))

	after, err := os.ReadFile(ps.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPolicyStoreRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{{`},
		{"wrong state kind", `[{"key":"a","state":{"kind":"X","key":"a","policy":{"kind":"QPolicy","time_step":0,"q":{"kind":"Q","values":{}}}}}]`},
		{"wrong policy kind", `[{"key":"a","state":{"kind":"QState","key":"a","policy":{"kind":"P","time_step":0,"q":{"kind":"Q","values":{}}}}}]`},
		{"key mismatch", `[{"key":"a","state":{"kind":"QState","key":"1","policy":{"kind":"QPolicy","time_step":0,"q":{"kind":"Q","values":{}}}}}]`},
		{"non canonical key", `[{"key":"ab","state":{"kind":"QState","key":"ab","policy":{"kind":"QPolicy","time_step":0,"q":{"kind":"Q","values":{}}}}}]`},
		{"action outside alphabet", `[{"key":"a","state":{"kind":"QState","key":"a","policy":{"kind":"QPolicy","time_step":0,"q":{"kind":"Q","values":{"'":1}}}}}]`},
		{"negative time step", `[{"key":"a","state":{"kind":"QState","key":"a","policy":{"kind":"QPolicy","time_step":-2,"q":{"kind":"Q","values":{}}}}}]`},
		{"duplicate key", `[{"key":"a","state":{"kind":"QState","key":"a","policy":{"kind":"QPolicy","time_step":0,"q":{"kind":"Q","values":{}}}}},{"key":"a","state":{"kind":"QState","key":"a","policy":{"kind":"QPolicy","time_step":0,"q":{"kind":"Q","values":{}}}}}]`},
		{"unknown field", `[{"key":"a","extra":1,"state":{"kind":"QState","key":"a","policy":{"kind":"QPolicy","time_step":0,"q":{"kind":"Q","values":{}}}}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ps := NewPolicyStore(dir, nil)
			require.NoError(t, os.WriteFile(ps.Path(), []byte(tt.content), 0644))
			_, err := ps.Load(newRand())
			assert.ErrorIs(t, err, ErrMalformedStore)
		})
	}
}
