package verify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
)

type resolverMock struct {
	mock.Mock
}

func (m *resolverMock) Closure(ctx context.Context, id string) ([]*bytecode.Module, error) {
	args := m.Called(ctx, id)
	var modules []*bytecode.Module
	if v := args.Get(0); v != nil {
		modules = v.([]*bytecode.Module)
	}
	return modules, args.Error(1)
}

type storeMock struct {
	mock.Mock
}

func (m *storeMock) OriginalPackageID(id string) string {
	return m.Called(id).String(0)
}

type rpcMock struct {
	mock.Mock
}

func (m *rpcMock) GetNormalizedModules(ctx context.Context, id string) (map[string]json.RawMessage, error) {
	args := m.Called(ctx, id)
	var doc map[string]json.RawMessage
	if v := args.Get(0); v != nil {
		doc = v.(map[string]json.RawMessage)
	}
	return doc, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// addr pads a short hex tail to the canonical 64-digit module address.
func addr(tail string) string {
	return strings.Repeat("0", 64-len(tail)) + tail
}

func normalizedDoc(t *testing.T, modules map[string]string) map[string]json.RawMessage {
	t.Helper()
	doc := make(map[string]json.RawMessage, len(modules))
	for name, body := range modules {
		doc[name] = json.RawMessage(body)
	}
	return doc
}

// coinModule is a local module whose remote projection reports struct
// fields in the opposite order and omits the private helper function.
func coinModule() *bytecode.Module {
	u64 := bytecode.Type{Kind: bytecode.KindU64}
	boolT := bytecode.Type{Kind: bytecode.KindBool}
	return &bytecode.Module{
		Address: addr("1"),
		Name:    "coin",
		Functions: []bytecode.Function{
			{
				Name:       "transfer",
				Visibility: bytecode.VisPublic,
				IsEntry:    true,
				Params:     []bytecode.Type{u64},
			},
			{
				Name:       "helper",
				Visibility: bytecode.VisPrivate,
			},
		},
		Structs: []bytecode.Struct{
			{
				Name:      "Coin",
				Abilities: []string{"key", "store"},
				Fields: []bytecode.Field{
					{Name: "x", Type: u64},
					{Name: "y", Type: boolT},
				},
			},
		},
	}
}

const coinProjection = `{
	"name": "coin",
	"exposedFunctions": {
		"transfer": {
			"visibility": "Public",
			"isEntry": true,
			"typeParameters": [],
			"parameters": ["U64"],
			"return": []
		}
	},
	"structs": {
		"Coin": {
			"abilities": {"abilities": ["Store", "Key"]},
			"typeParameters": [],
			"fields": [
				{"name": "y", "type": "Bool"},
				{"name": "x", "type": "U64"}
			]
		}
	}
}`

func newService(resolver *resolverMock, store *storeMock, rpc *rpcMock) *Service {
	return NewService(resolver, store, rpc, discardLogger())
}

func TestVerifyMatchingPackage(t *testing.T) {
	resolver := new(resolverMock)
	resolver.On("Closure", mock.Anything, addr("1")).
		Return([]*bytecode.Module{coinModule()}, nil).Once()

	store := new(storeMock)
	store.On("OriginalPackageID", "0x"+addr("1")).Return("0x1").Once()

	rpc := new(rpcMock)
	rpc.On("GetNormalizedModules", mock.Anything, "0x"+addr("1")).
		Return(normalizedDoc(t, map[string]string{"coin": coinProjection}), nil).Once()

	res, err := newService(resolver, store, rpc).Verify(context.Background(), "0x1")
	require.NoError(t, err)

	// Field order differences normalize away and the private non-entry
	// helper is excluded from the comparison entirely.
	assert.True(t, res.OK)
	assert.Equal(t, "0x1", res.PackageID)
	assert.Empty(t, res.ModulesMissingLocal)
	assert.Empty(t, res.ModulesMissingRPC)
	assert.Empty(t, res.ModulesWithDiffs)
	assert.Empty(t, res.DiffSummary)
	resolver.AssertExpectations(t)
	store.AssertExpectations(t)
	rpc.AssertExpectations(t)
}

func TestVerifyReportsModuleMissingLocally(t *testing.T) {
	resolver := new(resolverMock)
	resolver.On("Closure", mock.Anything, addr("1")).
		Return([]*bytecode.Module{coinModule()}, nil).Once()

	store := new(storeMock)
	store.On("OriginalPackageID", "0x"+addr("1")).Return("0x1").Once()

	rpc := new(rpcMock)
	rpc.On("GetNormalizedModules", mock.Anything, "0x"+addr("1")).
		Return(normalizedDoc(t, map[string]string{
			"coin":     coinProjection,
			"treasury": `{"name": "treasury", "exposedFunctions": {}, "structs": {}}`,
		}), nil).Once()

	res, err := newService(resolver, store, rpc).Verify(context.Background(), "0x1")
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, []string{"treasury"}, res.ModulesMissingLocal)
	assert.Empty(t, res.ModulesMissingRPC)
}

func TestVerifyReportsFunctionMismatch(t *testing.T) {
	// Same module, but the remote projection disagrees on the entry
	// flag of transfer.
	projection := strings.Replace(coinProjection, `"isEntry": true`, `"isEntry": false`, 1)

	resolver := new(resolverMock)
	resolver.On("Closure", mock.Anything, addr("1")).
		Return([]*bytecode.Module{coinModule()}, nil).Once()

	store := new(storeMock)
	store.On("OriginalPackageID", "0x"+addr("1")).Return("0x1").Once()

	rpc := new(rpcMock)
	rpc.On("GetNormalizedModules", mock.Anything, "0x"+addr("1")).
		Return(normalizedDoc(t, map[string]string{"coin": projection}), nil).Once()

	res, err := newService(resolver, store, rpc).Verify(context.Background(), "0x1")
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, []string{"coin"}, res.ModulesWithDiffs)
	assert.Equal(t, map[string]int{"function_mismatch": 1}, res.DiffSummary)
}

func TestVerifyFiltersClosureByOriginalAddress(t *testing.T) {
	// The closure includes dependency modules at another address; only
	// modules self-declaring the original address are compared.
	dep := &bytecode.Module{Address: addr("2"), Name: "framework"}

	resolver := new(resolverMock)
	resolver.On("Closure", mock.Anything, addr("9")).
		Return([]*bytecode.Module{dep, coinModuleAt(addr("1"))}, nil).Once()

	store := new(storeMock)
	store.On("OriginalPackageID", "0x"+addr("9")).Return("0x1").Once()

	rpc := new(rpcMock)
	rpc.On("GetNormalizedModules", mock.Anything, "0x"+addr("9")).
		Return(normalizedDoc(t, map[string]string{"coin": coinProjection}), nil).Once()

	res, err := newService(resolver, store, rpc).Verify(context.Background(), "0x9")
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func coinModuleAt(address string) *bytecode.Module {
	m := coinModule()
	m.Address = address
	return m
}

func TestVerifyFailsWhenNoModulesCarryOriginalAddress(t *testing.T) {
	dep := &bytecode.Module{Address: addr("2"), Name: "framework"}

	resolver := new(resolverMock)
	resolver.On("Closure", mock.Anything, addr("9")).
		Return([]*bytecode.Module{dep}, nil).Once()

	store := new(storeMock)
	store.On("OriginalPackageID", "0x"+addr("9")).Return("0x9").Once()

	_, err := newService(resolver, store, new(rpcMock)).Verify(context.Background(), "0x9")
	require.Error(t, err)

	var notFound *LocalModulesNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "0x9", notFound.Address)
	assert.Equal(t, []string{"0x2"}, notFound.Present)
}

func TestVerifyRejectsInvalidID(t *testing.T) {
	_, err := newService(new(resolverMock), new(storeMock), new(rpcMock)).
		Verify(context.Background(), "zz")
	require.Error(t, err)
}

func TestVerifyAllRecordsFailuresAndContinues(t *testing.T) {
	resolver := new(resolverMock)
	resolver.On("Closure", mock.Anything, addr("1")).
		Return(nil, errors.New("node unreachable")).Once()
	resolver.On("Closure", mock.Anything, addr("2")).
		Return([]*bytecode.Module{coinModuleAt(addr("2"))}, nil).Once()

	store := new(storeMock)
	store.On("OriginalPackageID", "0x"+addr("2")).Return("0x2").Once()

	rpc := new(rpcMock)
	rpc.On("GetNormalizedModules", mock.Anything, "0x"+addr("2")).
		Return(normalizedDoc(t, map[string]string{"coin": coinProjection}), nil).Once()

	results := newService(resolver, store, rpc).
		VerifyAll(context.Background(), []string{"0x1", "0x2"})
	require.Len(t, results, 2)

	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Error, "node unreachable")
	assert.True(t, results[1].OK)
}
