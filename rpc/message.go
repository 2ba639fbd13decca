package rpc

import (
	"encoding/json"
	"sync/atomic"
)

// MessageType classifies a Message by the variant tag described in
// spec.md §3.
type MessageType int

const (
	TypeRequest MessageType = iota
	TypeNotification
	TypeResponse
	TypeError
)

// Format selects the wire rendering used by ToJSON.
type Format int

const (
	Compact Format = iota
	Indented
)

const wireVersion = "2.0"

var globalMessageID int64

func nextGlobalID() Value {
	return Int(atomic.AddInt64(&globalMessageID, 1))
}

// Message is the in-memory JSON-RPC 2.0 envelope: a tagged value with
// variants {Request, Notification, Response, Error} per spec.md §3.
type Message struct {
	typ     MessageType
	version string
	id      Value
	hasID   bool

	method    string
	params    Value
	hasParams bool

	result    Value
	hasResult bool

	errCode    int
	errMessage string
	errData    Value
	hasErrData bool

	valid bool
}

// CreateRequest allocates a fresh id and builds a Request. params may be
// a single scalar value (wrapped into a 1-element array by
// collapseParams), an array, an object, or several values (sent as an
// array) (spec.md §4.1).
func CreateRequest(method string, params ...interface{}) Message {
	return newRequest(nextGlobalID(), method, collapseParams(params))
}

// CreateRequestWithID is the low-level constructor used by Socket, which
// owns its own monotonic id generator (spec.md §4.3) rather than relying
// on the package-global counter CreateRequest uses.
func CreateRequestWithID(id Value, method string, params Value) Message {
	return newRequest(id, method, params)
}

func newRequest(id Value, method string, params Value) Message {
	m := Message{typ: TypeRequest, version: wireVersion, id: id, hasID: true, method: method, valid: true}
	if params.Kind() != KindNull {
		m.params = params
		m.hasParams = true
	}
	return m
}

// CreateNotification builds a Request without an id; no response is
// expected.
func CreateNotification(method string, params ...interface{}) Message {
	m := Message{typ: TypeNotification, version: wireVersion, method: method, valid: true}
	p := collapseParams(params)
	if p.Kind() != KindNull {
		m.params = p
		m.hasParams = true
	}
	return m
}

// CreateResponse copies the id and version of original and attaches
// result (spec.md §4.1).
func CreateResponse(original Message, result interface{}) Message {
	return Message{
		typ:       TypeResponse,
		version:   wireVersion,
		id:        original.id,
		hasID:     original.hasID,
		result:    ValueOf(result),
		hasResult: true,
		valid:     true,
	}
}

// CreateErrorResponse copies the id of original (or null if it had none)
// and attaches an error.
func CreateErrorResponse(original Message, code int, message string, data ...interface{}) Message {
	m := Message{
		typ:        TypeError,
		version:    wireVersion,
		id:         original.id,
		hasID:      original.hasID,
		errCode:    code,
		errMessage: message,
		valid:      true,
	}
	if !m.hasID {
		m.id = Null()
		m.hasID = true
	}
	if len(data) > 0 {
		m.errData = ValueOf(data[0])
		m.hasErrData = true
	}
	return m
}

// collapseParams builds the Value that becomes a Request/Notification's
// params. spec.md §3 restricts params to absent, array, or object on the
// wire, so a lone scalar argument is wrapped into a 1-element array rather
// than serialized bare; a lone array or object argument passes through
// unwrapped.
func collapseParams(params []interface{}) Value {
	switch len(params) {
	case 0:
		return Null()
	case 1:
		v := ValueOf(params[0])
		if v.Kind() == KindArray || v.Kind() == KindObject {
			return v
		}
		return Array(v)
	default:
		vs := make([]Value, len(params))
		for i, p := range params {
			vs[i] = ValueOf(p)
		}
		return Array(vs...)
	}
}

// Accessors.

func (m Message) Type() MessageType { return m.typ }
func (m Message) IsValid() bool     { return m.valid }
func (m Message) Method() string    { return m.method }
func (m Message) Params() Value     { return m.params }
func (m Message) HasParams() bool   { return m.hasParams }
func (m Message) Result() Value     { return m.result }
func (m Message) ErrorCode() int    { return m.errCode }
func (m Message) ErrorMessage() string { return m.errMessage }
func (m Message) ErrorData() Value  { return m.errData }
func (m Message) HasID() bool       { return m.hasID }

func (m Message) ID() Value {
	if !m.hasID {
		return Null()
	}
	return m.id
}

// Equal supports the round-trip property of spec.md §8.
func (m Message) Equal(other Message) bool {
	if m.typ != other.typ || m.version != other.version || m.valid != other.valid {
		return false
	}
	if m.hasID != other.hasID || (m.hasID && !m.id.Equal(other.id)) {
		return false
	}
	switch m.typ {
	case TypeRequest, TypeNotification:
		if m.method != other.method || m.hasParams != other.hasParams {
			return false
		}
		if m.hasParams && !m.params.Equal(other.params) {
			return false
		}
	case TypeResponse:
		return m.result.Equal(other.result)
	case TypeError:
		return m.errCode == other.errCode && m.errMessage == other.errMessage && m.errData.Equal(other.errData)
	}
	return true
}

// wire is the on-the-wire JSON shape shared by every variant.
type wire struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// FromJSON parses a single complete JSON object into a Message,
// classifying its variant by field presence per spec.md §4.1.
func FromJSON(data []byte) Message {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		pe := &parseError{msg: err.Error()}
		return Message{typ: TypeError, version: wireVersion, id: Null(), hasID: true, errCode: pe.ErrorCode(), errMessage: pe.Error(), valid: false}
	}

	var id Value
	hasID := len(w.ID) > 0
	if hasID {
		if v, err := ParseValue(w.ID); err == nil {
			id = v
		} else {
			hasID = false
		}
	}

	switch {
	case w.Error != nil:
		m := Message{typ: TypeError, version: wireVersion, id: id, hasID: hasID, errCode: w.Error.Code, errMessage: w.Error.Message, valid: true}
		if !m.hasID {
			m.id, m.hasID = Null(), true
		}
		if len(w.Error.Data) > 0 {
			if v, err := ParseValue(w.Error.Data); err == nil {
				m.errData, m.hasErrData = v, true
			}
		}
		return m

	case len(w.Result) > 0:
		result, _ := ParseValue(w.Result)
		return Message{typ: TypeResponse, version: wireVersion, id: id, hasID: hasID, result: result, hasResult: true, valid: true}

	case w.Method != "":
		var params Value
		hasParams := len(w.Params) > 0
		if hasParams {
			p, err := ParseValue(w.Params)
			if err != nil {
				pe := &parseError{msg: err.Error()}
				return Message{typ: TypeError, version: wireVersion, id: id, hasID: hasID, errCode: pe.ErrorCode(), errMessage: pe.Error(), valid: false}
			}
			params = p
		}
		if hasID {
			return Message{typ: TypeRequest, version: wireVersion, id: id, hasID: true, method: w.Method, params: params, hasParams: hasParams, valid: true}
		}
		return Message{typ: TypeNotification, version: wireVersion, method: w.Method, params: params, hasParams: hasParams, valid: true}

	default:
		// Well-formed JSON lacking method, result and error: InvalidRequest,
		// id preserved if present (spec.md §4.1 invalidRequest contract).
		ie := &invalidRequestError{msg: "message has neither method, result, nor error"}
		m := Message{typ: TypeError, version: wireVersion, id: id, hasID: hasID, errCode: ie.ErrorCode(), errMessage: ie.Error(), valid: true}
		if !m.hasID {
			m.id, m.hasID = Null(), true
		}
		return m
	}
}

// ToJSON serializes the envelope using the requested format.
func (m Message) ToJSON(format Format) ([]byte, error) {
	w := wire{Version: wireVersion}
	if m.hasID {
		idBytes, err := m.id.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.ID = idBytes
	}

	switch m.typ {
	case TypeRequest, TypeNotification:
		w.Method = m.method
		if m.hasParams {
			pb, err := m.params.MarshalJSON()
			if err != nil {
				return nil, err
			}
			w.Params = pb
		}
	case TypeResponse:
		rb, err := m.result.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.Result = rb
	case TypeError:
		we := &wireError{Code: m.errCode, Message: m.errMessage}
		if m.hasErrData {
			db, err := m.errData.MarshalJSON()
			if err != nil {
				return nil, err
			}
			we.Data = db
		}
		w.Error = we
	}

	if format == Indented {
		return json.MarshalIndent(w, "", "  ")
	}
	return json.Marshal(w)
}
