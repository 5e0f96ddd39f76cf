package sui

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Uint64 accepts both JSON numbers and decimal strings; the Sui RPC sends u64 as strings.
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*u = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid u64 %s: %w", string(b), err)
	}
	*u = Uint64(v)
	return nil
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

// Page is a cursor-paginated RPC result.
type Page[T any] struct {
	Data        []T             `json:"data"`
	NextCursor  json.RawMessage `json:"nextCursor"`
	HasNextPage bool            `json:"hasNextPage"`
}

// ObjectOwner 对象所有者：地址、对象、共享或不可变。
type ObjectOwner struct {
	AddressOwner string       `json:"AddressOwner,omitempty"`
	ObjectOwner  string       `json:"ObjectOwner,omitempty"`
	Shared       *SharedOwner `json:"Shared,omitempty"`
	Immutable    bool         `json:"-"`
}

// SharedOwner carries the version at which the object became shared.
type SharedOwner struct {
	InitialSharedVersion Uint64 `json:"initial_shared_version"`
}

func (o *ObjectOwner) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "Immutable" {
			o.Immutable = true
			return nil
		}
		return fmt.Errorf("unknown owner %q", s)
	}
	type plain ObjectOwner
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = ObjectOwner(p)
	return nil
}

// ObjectData is the object payload of sui_getObject.
type ObjectData struct {
	ObjectID string       `json:"objectId"`
	Version  Uint64       `json:"version"`
	Digest   string       `json:"digest"`
	Type     string       `json:"type"`
	Owner    *ObjectOwner `json:"owner,omitempty"`
}

// Ref converts the object into a BCS object reference.
func (o ObjectData) Ref() (ObjectRef, error) {
	id, err := ParseAddress(o.ObjectID)
	if err != nil {
		return ObjectRef{}, err
	}
	d, err := ParseDigest(o.Digest)
	if err != nil {
		return ObjectRef{}, err
	}
	return ObjectRef{ID: id, Version: uint64(o.Version), Digest: d}, nil
}

// ObjectResponse wraps ObjectData or an error code such as "notExists".
type ObjectResponse struct {
	Data  *ObjectData     `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

// EventID identifies an event; also used as the query cursor.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Event is one Move event from suix_queryEvents.
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson"`
	TimestampMs       Uint64          `json:"timestampMs"`
}

// Coin is an owned coin object from suix_getCoins.
type Coin struct {
	CoinType     string `json:"coinType"`
	CoinObjectID string `json:"coinObjectId"`
	Version      Uint64 `json:"version"`
	Digest       string `json:"digest"`
	Balance      Uint64 `json:"balance"`
}

// Ref converts the coin into a BCS object reference.
func (c Coin) Ref() (ObjectRef, error) {
	return ObjectData{ObjectID: c.CoinObjectID, Version: c.Version, Digest: c.Digest}.Ref()
}

// ExecutionStatus is the effects status of a transaction.
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Effects is the subset of transaction effects the agent reads.
type Effects struct {
	Status ExecutionStatus `json:"status"`
}

// Succeeded reports whether the transaction executed successfully.
func (e Effects) Succeeded() bool { return e.Status.Status == "success" }

// ReturnValue is one ([bytes], type) pair of a devInspect result.
type ReturnValue struct {
	Bytes []byte
	Type  string
}

func (r *ReturnValue) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("return value: expected [bytes, type], got %d elements", len(pair))
	}
	var ints []int
	if err := json.Unmarshal(pair[0], &ints); err != nil {
		return fmt.Errorf("return value bytes: %w", err)
	}
	r.Bytes = make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("return value byte %d out of range", v)
		}
		r.Bytes[i] = byte(v)
	}
	return json.Unmarshal(pair[1], &r.Type)
}

// ExecutionResult holds the return values of one command.
type ExecutionResult struct {
	ReturnValues []ReturnValue `json:"returnValues"`
}

// DevInspectResults is the result of sui_devInspectTransactionBlock.
type DevInspectResults struct {
	Effects Effects           `json:"effects"`
	Results []ExecutionResult `json:"results"`
	Error   string            `json:"error,omitempty"`
}

// TransactionResponse is the result of sui_executeTransactionBlock.
type TransactionResponse struct {
	Digest  string   `json:"digest"`
	Effects *Effects `json:"effects,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}
