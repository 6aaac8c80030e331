package ipc

import (
	"fmt"
	"math"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"google.golang.org/protobuf/encoding/protowire"
)

// Op selects the daemon operation a request performs
type Op int32

const (
	OpUnknown Op = iota
	OpCastStart
	OpCastStop
	OpCastStatus
	OpRecordStart
	OpRecordStop
	OpRecordPause
	OpRecordResume
	OpRecordStatus
	OpMirrorStart
	OpMirrorStop
	OpStatusAll
)

var opNames = map[Op]string{
	OpCastStart:    "cast.start",
	OpCastStop:     "cast.stop",
	OpCastStatus:   "cast.status",
	OpRecordStart:  "record.start",
	OpRecordStop:   "record.stop",
	OpRecordPause:  "record.pause",
	OpRecordResume: "record.resume",
	OpRecordStatus: "record.status",
	OpMirrorStart:  "mirror.start",
	OpMirrorStop:   "mirror.stop",
	OpStatusAll:    "status.all",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int32(o))
}

// Request is a single client call
type Request struct {
	Op       Op
	Key      supervisor.Key
	Port     uint16
	Extra    string
	Serial   string
	Recorder *supervisor.RecorderOptions
}

// Response answers one Request. Which fields are set depends on the op.
type Response struct {
	OK       bool
	Error    string
	Output   string
	Casts    []supervisor.KeyStatus
	Recorder *supervisor.RecorderStatus
	Mirrors  []supervisor.Status
}

// Err converts a failed response into an error
func (r *Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return fmt.Errorf("daemon error")
	}
	return fmt.Errorf("daemon error: %s", r.Error)
}

// Request fields
const (
	reqOp       protowire.Number = 1
	reqProtocol protowire.Number = 2
	reqRole     protowire.Number = 3
	reqPort     protowire.Number = 4
	reqExtra    protowire.Number = 5
	reqSerial   protowire.Number = 6
	reqRecorder protowire.Number = 7
)

// Response fields
const (
	respOK       protowire.Number = 1
	respError    protowire.Number = 2
	respOutput   protowire.Number = 3
	respCasts    protowire.Number = 4
	respRecorder protowire.Number = 5
	respMirrors  protowire.Number = 6
)

// Marshal encodes the request in protobuf wire format
func (r *Request) Marshal() []byte {
	var b []byte
	b = appendVarint(b, reqOp, uint64(r.Op))
	b = appendVarint(b, reqProtocol, uint64(r.Key.Protocol))
	b = appendVarint(b, reqRole, uint64(r.Key.Role))
	b = appendVarint(b, reqPort, uint64(r.Port))
	b = appendString(b, reqExtra, r.Extra)
	b = appendString(b, reqSerial, r.Serial)
	if r.Recorder != nil {
		b = appendMessage(b, reqRecorder, marshalRecorderOptions(r.Recorder))
	}
	return b
}

// Unmarshal decodes a request, skipping unknown fields
func (r *Request) Unmarshal(b []byte) error {
	*r = Request{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case reqOp, reqProtocol, reqRole, reqPort:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return 0, err
			}
			switch num {
			case reqOp:
				r.Op = Op(v)
			case reqProtocol:
				p := supervisor.Protocol(v)
				if v > math.MaxInt32 || !p.Valid() {
					return 0, fmt.Errorf("unknown protocol %d", v)
				}
				r.Key.Protocol = p
			case reqRole:
				role := supervisor.Role(v)
				if v > math.MaxInt32 || !role.Valid() {
					return 0, fmt.Errorf("unknown role %d", v)
				}
				r.Key.Role = role
			case reqPort:
				if v > 0xffff {
					return 0, fmt.Errorf("port %d out of range", v)
				}
				r.Port = uint16(v)
			}
			return n, nil
		case reqExtra, reqSerial:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			if num == reqExtra {
				r.Extra = string(v)
			} else {
				r.Serial = string(v)
			}
			return n, nil
		case reqRecorder:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			opts, err := unmarshalRecorderOptions(v)
			if err != nil {
				return 0, err
			}
			r.Recorder = opts
			return n, nil
		}
		return 0, nil
	})
}

// Marshal encodes the response in protobuf wire format
func (r *Response) Marshal() []byte {
	var b []byte
	b = appendBool(b, respOK, r.OK)
	b = appendString(b, respError, r.Error)
	b = appendString(b, respOutput, r.Output)
	for i := range r.Casts {
		b = appendMessage(b, respCasts, marshalKeyStatus(&r.Casts[i]))
	}
	if r.Recorder != nil {
		b = appendMessage(b, respRecorder, marshalRecorderStatus(r.Recorder))
	}
	for i := range r.Mirrors {
		b = appendMessage(b, respMirrors, marshalStatus(&r.Mirrors[i]))
	}
	return b
}

// Unmarshal decodes a response, skipping unknown fields
func (r *Response) Unmarshal(b []byte) error {
	*r = Response{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == respOK {
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return 0, err
			}
			r.OK = protowire.DecodeBool(v)
			return n, nil
		}

		if num < respError || num > respMirrors {
			return 0, nil
		}
		v, n, err := consumeBytes(typ, b)
		if err != nil {
			return 0, err
		}

		switch num {
		case respError:
			r.Error = string(v)
		case respOutput:
			r.Output = string(v)
		case respCasts:
			ks, err := unmarshalKeyStatus(v)
			if err != nil {
				return 0, err
			}
			r.Casts = append(r.Casts, ks)
		case respRecorder:
			rs, err := unmarshalRecorderStatus(v)
			if err != nil {
				return 0, err
			}
			r.Recorder = &rs
		case respMirrors:
			st, err := unmarshalStatus(v)
			if err != nil {
				return 0, err
			}
			r.Mirrors = append(r.Mirrors, st)
		}
		return n, nil
	})
}

func marshalStatus(s *supervisor.Status) []byte {
	var b []byte
	b = appendBool(b, 1, s.Running)
	b = appendBool(b, 2, s.Paused)
	b = appendVarint(b, 3, uint64(s.Port))
	b = appendString(b, 4, s.Target)
	b = appendString(b, 5, s.Error)
	b = appendString(b, 6, s.Message)
	b = appendInt64(b, 7, int64(s.PID))
	if !s.StartedAt.IsZero() {
		b = appendInt64(b, 8, s.StartedAt.UnixNano())
	}
	return b
}

func unmarshalStatus(b []byte) (supervisor.Status, error) {
	var s supervisor.Status
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1, 2, 3, 7, 8:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return 0, err
			}
			switch num {
			case 1:
				s.Running = protowire.DecodeBool(v)
			case 2:
				s.Paused = protowire.DecodeBool(v)
			case 3:
				s.Port = uint16(v) //nolint:gosec // encoded from a uint16
			case 7:
				s.PID = int(protowire.DecodeZigZag(v))
			case 8:
				s.StartedAt = time.Unix(0, protowire.DecodeZigZag(v))
			}
			return n, nil
		case 4, 5, 6:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			switch num {
			case 4:
				s.Target = string(v)
			case 5:
				s.Error = string(v)
			case 6:
				s.Message = string(v)
			}
			return n, nil
		}
		return 0, nil
	})
	return s, err
}

func marshalKeyStatus(ks *supervisor.KeyStatus) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(ks.Key.Protocol))
	b = appendVarint(b, 2, uint64(ks.Key.Role))
	return appendMessage(b, 3, marshalStatus(&ks.Status))
}

func unmarshalKeyStatus(b []byte) (supervisor.KeyStatus, error) {
	var ks supervisor.KeyStatus
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1, 2:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return 0, err
			}
			if num == 1 {
				ks.Key.Protocol = supervisor.Protocol(v)
			} else {
				ks.Key.Role = supervisor.Role(v)
			}
			return n, nil
		case 3:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			st, err := unmarshalStatus(v)
			if err != nil {
				return 0, err
			}
			ks.Status = st
			return n, nil
		}
		return 0, nil
	})
	return ks, err
}

func marshalRecorderStatus(rs *supervisor.RecorderStatus) []byte {
	var b []byte
	b = appendMessage(b, 1, marshalStatus(&rs.Status))
	b = appendInt64(b, 2, int64(rs.Elapsed))
	return appendString(b, 3, rs.Output)
}

func unmarshalRecorderStatus(b []byte) (supervisor.RecorderStatus, error) {
	var rs supervisor.RecorderStatus
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1, 3:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			if num == 3 {
				rs.Output = string(v)
				return n, nil
			}
			st, err := unmarshalStatus(v)
			if err != nil {
				return 0, err
			}
			rs.Status = st
			return n, nil
		case 2:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return 0, err
			}
			rs.Elapsed = time.Duration(protowire.DecodeZigZag(v))
			return n, nil
		}
		return 0, nil
	})
	return rs, err
}

func marshalRecorderOptions(o *supervisor.RecorderOptions) []byte {
	var b []byte
	b = appendString(b, 1, o.Dir)
	b = appendString(b, 2, o.FilenameFormat)
	b = appendString(b, 3, o.Container)
	b = appendString(b, 4, o.Codec)
	b = appendInt64(b, 5, int64(o.Framerate))
	b = appendString(b, 6, o.Resolution)
	b = appendBool(b, 7, o.HardwareAccel)
	b = appendString(b, 8, o.VAAPIDevice)
	b = appendString(b, 9, o.AudioSource)
	b = appendString(b, 10, o.AudioDevice)
	b = appendString(b, 11, o.Bitrate)
	return appendString(b, 12, o.ExtraArgs)
}

func unmarshalRecorderOptions(b []byte) (*supervisor.RecorderOptions, error) {
	o := &supervisor.RecorderOptions{}
	strs := map[protowire.Number]*string{
		1:  &o.Dir,
		2:  &o.FilenameFormat,
		3:  &o.Container,
		4:  &o.Codec,
		6:  &o.Resolution,
		8:  &o.VAAPIDevice,
		9:  &o.AudioSource,
		10: &o.AudioDevice,
		11: &o.Bitrate,
		12: &o.ExtraArgs,
	}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if dst, ok := strs[num]; ok {
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			*dst = string(v)
			return n, nil
		}
		switch num {
		case 5, 7:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return 0, err
			}
			if num == 5 {
				o.Framerate = int(protowire.DecodeZigZag(v))
			} else {
				o.HardwareAccel = protowire.DecodeBool(v)
			}
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}
