package vt

import (
	"fmt"
	"unicode/utf8"
)

type parserState uint8

const (
	stateText parserState = iota
	stateEscape
	stateCharset
	stateParams
	stateString
	stateStringEsc
	stateIgnore
)

var stateNames = [...]string{"text", "escape", "charset", "params", "string", "string-esc", "ignore"}

func (s parserState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

type seqKind uint8

const (
	seqCSI seqKind = iota + 1
	seqOSC
	seqDCS
)

const (
	maxParams     = 32
	maxParamValue = 65535
	maxPayload    = 4096
	maxRaw        = 64
)

// sequence is the pending escape sequence being accumulated.
type sequence struct {
	kind     seqKind
	private  byte
	params   []int
	current  int
	digits   bool
	inter    []byte
	payload  []byte
	raw      []byte
	designee byte
}

func (q *sequence) reset(kind seqKind) {
	q.kind = kind
	q.private = 0
	q.params = q.params[:0]
	q.current = 0
	q.digits = false
	q.inter = q.inter[:0]
	q.payload = q.payload[:0]
	q.raw = q.raw[:0]
	q.designee = 0
}

func (q *sequence) record(b byte) {
	if len(q.raw) < maxRaw {
		q.raw = append(q.raw, b)
	}
}

func (q *sequence) digit(b byte) {
	q.current = q.current*10 + int(b-'0')
	if q.current > maxParamValue {
		q.current = maxParamValue
	}
	q.digits = true
}

// commit closes the current parameter. An empty parameter is kept as 0
// so positions line up with the wire format.
func (q *sequence) commit() {
	if len(q.params) < maxParams {
		q.params = append(q.params, q.current)
	}
	q.current = 0
	q.digits = false
}

// param returns parameter i, or def when it is absent.
func (q *sequence) param(i, def int) int {
	if i < len(q.params) {
		return q.params[i]
	}
	return def
}

// atLeastOne returns parameter i clamped to a minimum of 1.
func (q *sequence) atLeastOne(i int) int {
	n := q.param(i, 1)
	if n < 1 {
		return 1
	}
	return n
}

type transition func(t *Terminal, b byte) parserState

var transitions = [...]transition{
	stateText:      (*Terminal).onText,
	stateEscape:    (*Terminal).onEscape,
	stateCharset:   (*Terminal).onCharset,
	stateParams:    (*Terminal).onParam,
	stateString:    (*Terminal).onString,
	stateStringEsc: (*Terminal).onStringEsc,
	stateIgnore:    (*Terminal).onIgnore,
}

func (t *Terminal) step(b byte) {
	t.state = transitions[t.state](t, b)
}

func (t *Terminal) onText(b byte) parserState {
	if len(t.partial) > 0 || b >= 0x80 {
		if b >= 0x80 {
			t.partial = append(t.partial, b)
			if !utf8.FullRune(t.partial) {
				return stateText
			}
			r, _ := utf8.DecodeRune(t.partial)
			t.partial = t.partial[:0]
			t.appendRune(r)
			return stateText
		}
		// A plain byte cut the multi-byte rune short.
		t.partial = t.partial[:0]
		t.appendRune(utf8.RuneError)
	}

	if b >= 0x20 && b != 0x7f {
		t.appendRune(rune(b))
		return stateText
	}
	if b == 0x1b {
		t.flush()
		t.seq.reset(0)
		t.seq.record(b)
		return stateEscape
	}
	t.flush()
	t.control(b)
	return stateText
}

func (t *Terminal) onEscape(b byte) parserState {
	t.seq.record(b)
	switch b {
	case '[':
		t.seq.kind = seqCSI
		return stateParams
	case ']':
		t.seq.kind = seqOSC
		return stateParams
	case 'P':
		t.seq.kind = seqDCS
		return stateParams
	case '(', ')', '*', '+':
		t.seq.designee = b
		return stateCharset
	case 0x1b:
		t.seq.reset(0)
		t.seq.record(b)
		return stateEscape
	case 0x18, 0x1a:
		return stateText
	}
	t.escape(b)
	return stateText
}

func (t *Terminal) onCharset(b byte) parserState {
	t.seq.record(b)
	if t.seq.designee == '(' {
		switch b {
		case '0':
			t.lineDrawing = true
			t.dirty = true
		case 'B', 'A', 'U':
			t.lineDrawing = false
			t.dirty = true
		default:
			t.unhandled()
		}
	}
	return stateText
}

func (t *Terminal) onParam(b byte) parserState {
	q := &t.seq
	q.record(b)
	switch {
	case b >= '0' && b <= '9':
		q.digit(b)
		return stateParams
	case b == ';' || b == ':':
		q.commit()
		if q.kind == seqOSC {
			return stateString
		}
		return stateParams
	case b == 0x1b:
		if q.kind == seqCSI {
			t.unhandled()
			q.reset(0)
			q.record(b)
			return stateEscape
		}
		return stateStringEsc
	case b == 0x18 || b == 0x1a:
		return stateText
	}

	switch q.kind {
	case seqOSC:
		if q.digits {
			q.commit()
		}
		if b == 0x07 {
			t.dispatchOSC()
			return stateText
		}
		q.payload = append(q.payload, b)
		return stateString
	case seqDCS:
		if b == 0x07 || b == '\\' {
			t.dispatchDCS()
			return stateText
		}
		return stateString
	}

	// CSI
	switch {
	case b >= '<' && b <= '?':
		if len(q.params) == 0 && !q.digits && q.private == 0 {
			q.private = b
			return stateParams
		}
		return stateIgnore
	case b >= 0x20 && b <= 0x2f:
		q.inter = append(q.inter, b)
		return stateParams
	case b >= 0x40 && b <= 0x7e:
		if q.digits || len(q.params) > 0 {
			q.commit()
		}
		t.dispatchCSI(b)
		return stateText
	case b < 0x20:
		t.control(b)
		return stateParams
	}
	return stateIgnore
}

// onIgnore swallows the rest of a malformed CSI up to its final byte.
func (t *Terminal) onIgnore(b byte) parserState {
	q := &t.seq
	q.record(b)
	switch {
	case b == 0x1b:
		t.unhandled()
		q.reset(0)
		q.record(b)
		return stateEscape
	case b == 0x18 || b == 0x1a:
		return stateText
	case b >= 0x40 && b <= 0x7e:
		t.unhandled()
		return stateText
	case b < 0x20:
		t.control(b)
	}
	return stateIgnore
}

func (t *Terminal) onString(b byte) parserState {
	q := &t.seq
	switch {
	case b == 0x07:
		t.finishString()
		return stateText
	case b == 0x1b:
		return stateStringEsc
	case q.kind == seqDCS && b == '\\':
		t.finishString()
		return stateText
	case b == 0x18 || b == 0x1a:
		return stateText
	}
	if len(q.payload) < maxPayload {
		q.payload = append(q.payload, b)
	}
	return stateString
}

// onStringEsc handles the byte after an ESC inside a string. ESC \ is the
// string terminator; any other byte ends the string and starts a new
// escape sequence with it.
func (t *Terminal) onStringEsc(b byte) parserState {
	t.finishString()
	if b == '\\' {
		return stateText
	}
	t.seq.reset(0)
	t.seq.record(0x1b)
	return t.onEscape(b)
}

func (t *Terminal) finishString() {
	switch t.seq.kind {
	case seqOSC:
		if t.seq.digits {
			t.seq.commit()
		}
		t.dispatchOSC()
	case seqDCS:
		t.dispatchDCS()
	}
}

func (t *Terminal) unhandled() {
	t.log.Debug("unhandled escape sequence", "seq", fmt.Sprintf("%q", t.seq.raw), "state", t.state.String())
}
