package cribl

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Extra holds server fields the bridge does not model. They are kept
// verbatim and written back on marshal, so a resource read from the API
// and sent back does not lose anything.
type Extra map[string]json.RawMessage

// ProductType classifies worker groups.
type ProductType string

// Product types accepted by listWorkerGroups.
const (
	ProductStream ProductType = "stream"
	ProductEdge   ProductType = "edge"
	ProductSearch ProductType = "search"
	ProductAll    ProductType = "all"
)

// WorkerGroup is a Stream worker group, Edge fleet or Search group.
type WorkerGroup struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	IsFleet       bool   `json:"isFleet,omitempty"`
	IsSearch      bool   `json:"isSearch,omitempty"`
	OnPrem        bool   `json:"onPrem,omitempty"`
	WorkerCount   int    `json:"workerCount,omitempty"`
	ConfigVersion string `json:"configVersion,omitempty"`
	Extra         Extra  `json:"-"`
}

// Product returns the product the group belongs to.
func (g WorkerGroup) Product() ProductType {
	switch {
	case g.IsFleet:
		return ProductEdge
	case g.IsSearch:
		return ProductSearch
	default:
		return ProductStream
	}
}

// Matches reports whether the group belongs to product p.
func (g WorkerGroup) Matches(p ProductType) bool {
	return p == ProductAll || g.Product() == p
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *WorkerGroup) UnmarshalJSON(data []byte) error {
	type plain WorkerGroup
	return unmarshalWithExtra(data, (*plain)(g), &g.Extra)
}

// MarshalJSON implements json.Marshaler.
func (g WorkerGroup) MarshalJSON() ([]byte, error) {
	type plain WorkerGroup
	return marshalWithExtra(plain(g), g.Extra)
}

// Pipeline is a processing pipeline. Conf is the pipeline configuration
// (functions, output, groups) and is passed through as-is.
type Pipeline struct {
	ID    string         `json:"id"`
	Conf  map[string]any `json:"conf,omitempty"`
	Extra Extra          `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	type plain Pipeline
	return unmarshalWithExtra(data, (*plain)(p), &p.Extra)
}

// MarshalJSON implements json.Marshaler.
func (p Pipeline) MarshalJSON() ([]byte, error) {
	type plain Pipeline
	return marshalWithExtra(plain(p), p.Extra)
}

// Source is a data input.
type Source struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
	Extra    Extra  `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Source) UnmarshalJSON(data []byte) error {
	type plain Source
	return unmarshalWithExtra(data, (*plain)(s), &s.Extra)
}

// MarshalJSON implements json.Marshaler.
func (s Source) MarshalJSON() ([]byte, error) {
	type plain Source
	return marshalWithExtra(plain(s), s.Extra)
}

// VersionStatus is the git working-tree status of a group's configuration.
type VersionStatus struct {
	Branch string `json:"branch,omitempty"`
	Ahead  int    `json:"ahead,omitempty"`
	Behind int    `json:"behind,omitempty"`
	Extra  Extra  `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *VersionStatus) UnmarshalJSON(data []byte) error {
	type plain VersionStatus
	return unmarshalWithExtra(data, (*plain)(v), &v.Extra)
}

// MarshalJSON implements json.Marshaler.
func (v VersionStatus) MarshalJSON() ([]byte, error) {
	type plain VersionStatus
	return marshalWithExtra(plain(v), v.Extra)
}

// CommitResult describes a configuration commit.
type CommitResult struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit"`
	Extra  Extra  `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CommitResult) UnmarshalJSON(data []byte) error {
	type plain CommitResult
	return unmarshalWithExtra(data, (*plain)(c), &c.Extra)
}

// MarshalJSON implements json.Marshaler.
func (c CommitResult) MarshalJSON() ([]byte, error) {
	type plain CommitResult
	return marshalWithExtra(plain(c), c.Extra)
}

// listResponse is the common {items, count} envelope of list endpoints.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count,omitempty"`
}

// unmarshalWithExtra decodes data into known (a pointer to a plain struct
// without custom methods) and stores every key not claimed by a json tag
// of known into extra.
func unmarshalWithExtra(data []byte, known any, extra *Extra) error {
	if err := json.Unmarshal(data, known); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range jsonKeys(reflect.TypeOf(known).Elem()) {
		delete(all, key)
	}
	if len(all) == 0 {
		*extra = nil
		return nil
	}
	*extra = all
	return nil
}

// marshalWithExtra encodes known and merges extra underneath it; modeled
// fields win over extras with the same key.
func marshalWithExtra(known any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(fields)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// jsonKeys lists the json names of t's exported, tagged fields.
func jsonKeys(t reflect.Type) []string {
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		keys = append(keys, name)
	}
	return keys
}
