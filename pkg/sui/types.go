package sui

import "encoding/json"

// RawPackage is a fetched package object: the raw module bytes plus
// the on-chain linkage table.
type RawPackage struct {
	ID string
	// ModuleMap maps module name to decoded module bytes.
	ModuleMap map[string][]byte
	// LinkageTable maps dependency package id to upgrade info.
	LinkageTable map[string]UpgradeInfo
}

// UpgradeInfo describes a linkage table entry.
type UpgradeInfo struct {
	UpgradedID      string      `json:"upgraded_id"`
	UpgradedVersion json.Number `json:"upgraded_version"`
}

// DependencyIDs returns the linkage table keys in unspecified order.
func (p *RawPackage) DependencyIDs() []string {
	deps := make([]string, 0, len(p.LinkageTable))
	for dep := range p.LinkageTable {
		deps = append(deps, dep)
	}
	return deps
}

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// objectResponse is the result shape of sui_getObject with showBcs.
type objectResponse struct {
	Data *struct {
		ObjectID string   `json:"objectId"`
		BCS      *rawData `json:"bcs"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// rawData is the BCS rendering of an object. For packages, ModuleMap
// values are base64-encoded module bytes.
type rawData struct {
	DataType     string                 `json:"dataType"`
	ID           string                 `json:"id"`
	ModuleMap    map[string]string      `json:"moduleMap"`
	LinkageTable map[string]UpgradeInfo `json:"linkageTable"`
}
