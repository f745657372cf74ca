package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode/bytecodetest"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/validation"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/pkg/sui"
)

type storeMock struct {
	mock.Mock
}

func (m *storeMock) LoadModules(id string) ([]*bytecode.Module, bool, error) {
	args := m.Called(id)
	var modules []*bytecode.Module
	if v := args.Get(0); v != nil {
		modules = v.([]*bytecode.Module)
	}
	return modules, args.Bool(1), args.Error(2)
}

func (m *storeMock) LinkageDeps(id string) ([]string, error) {
	args := m.Called(id)
	var deps []string
	if v := args.Get(0); v != nil {
		deps = v.([]string)
	}
	return deps, args.Error(1)
}

type fetcherMock struct {
	mock.Mock
}

func (m *fetcherMock) GetPackage(ctx context.Context, id string) (*sui.RawPackage, error) {
	args := m.Called(ctx, id)
	var pkg *sui.RawPackage
	if v := args.Get(0); v != nil {
		pkg = v.(*sui.RawPackage)
	}
	return pkg, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func norm(t *testing.T, id string) string {
	t.Helper()
	n, err := validation.NormalizePackageID(id)
	require.NoError(t, err)
	return n
}

func modules(names ...string) []*bytecode.Module {
	out := make([]*bytecode.Module, 0, len(names))
	for _, n := range names {
		out = append(out, &bytecode.Module{Name: n})
	}
	return out
}

func TestClosureDiamondLoadsSharedDepOnce(t *testing.T) {
	root := norm(t, "0x1")
	a := norm(t, "0xa")
	b := norm(t, "0xb")
	c := norm(t, "0xc")

	store := new(storeMock)
	store.On("LoadModules", root).Return(modules("root_mod"), true, nil).Once()
	store.On("LinkageDeps", root).Return([]string{"0xa", "0xb"}, nil).Once()
	store.On("LoadModules", a).Return(modules("a_mod"), true, nil).Once()
	store.On("LinkageDeps", a).Return([]string{"0xc"}, nil).Once()
	store.On("LoadModules", b).Return(modules("b_mod"), true, nil).Once()
	store.On("LinkageDeps", b).Return([]string{"0xc"}, nil).Once()
	store.On("LoadModules", c).Return(modules("c_mod"), true, nil).Once()
	store.On("LinkageDeps", c).Return(nil, nil).Once()

	fetcher := new(fetcherMock)

	r := New(store, fetcher, discardLogger())
	all, err := r.Closure(context.Background(), "0x1")
	require.NoError(t, err)

	names := make(map[string]int)
	for _, m := range all {
		names[m.Name]++
	}
	assert.Equal(t, map[string]int{"root_mod": 1, "a_mod": 1, "b_mod": 1, "c_mod": 1}, names)
	store.AssertExpectations(t)
	fetcher.AssertNotCalled(t, "GetPackage", mock.Anything, mock.Anything)
}

func TestClosureFetchesMissingRootRemotely(t *testing.T) {
	root := norm(t, "0x42")
	dep := norm(t, "0x2")

	store := new(storeMock)
	store.On("LoadModules", root).Return(nil, false, nil).Once()
	store.On("LoadModules", dep).Return(modules("dep_mod"), true, nil).Once()
	store.On("LinkageDeps", dep).Return(nil, nil).Once()

	fetcher := new(fetcherMock)
	fetcher.On("GetPackage", mock.Anything, "0x"+root).Return(&sui.RawPackage{
		ID:        "0x" + root,
		ModuleMap: map[string][]byte{"fetched": bytecodetest.MinimalModule("fetched", 0x42)},
		LinkageTable: map[string]sui.UpgradeInfo{
			"0x2": {UpgradedID: "0x2"},
		},
	}, nil).Once()

	r := New(store, fetcher, discardLogger())
	all, err := r.Closure(context.Background(), "0x42")
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Root modules come first in discovery order.
	assert.Equal(t, "fetched", all[0].Name)
	assert.Equal(t, "dep_mod", all[1].Name)
	store.AssertExpectations(t)
	fetcher.AssertExpectations(t)
}

func TestClosureFailsWhenDepModulesUnavailable(t *testing.T) {
	root := norm(t, "0x1")
	dep := norm(t, "0xdead")

	store := new(storeMock)
	store.On("LoadModules", root).Return(modules("root_mod"), true, nil).Once()
	store.On("LinkageDeps", root).Return([]string{"0xdead"}, nil).Once()
	store.On("LoadModules", dep).Return(nil, false, nil).Once()

	fetcher := new(fetcherMock)
	fetcher.On("GetPackage", mock.Anything, "0x"+dep).
		Return(nil, errors.New("node unreachable")).Once()

	r := New(store, fetcher, discardLogger())
	_, err := r.Closure(context.Background(), "0x1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node unreachable")
}

func TestClosureRejectsInvalidRootID(t *testing.T) {
	r := New(new(storeMock), new(fetcherMock), discardLogger())
	_, err := r.Closure(context.Background(), "not-an-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalidID)
}
