package journal

import (
	"bytes"
	"encoding/json"

	"github.com/starford/munin/internal/storage"
)

// recoverLocked handles the one corruption class observed in the wild:
// a prior partial write leaving duplicated closing delimiters at the end of
// the file. The repair is bounded to stripping those trailing closers; any
// other damage surfaces as ErrCorruptStore with the file untouched. On a
// successful repair the original bytes are preserved in a .bak file before
// the corrected serialization replaces the journal. Callers hold the lock.
func (j *Journal) recoverLocked(original []byte) (*Store, error) {
	repaired, ok := repairTrailing(original)
	if !ok {
		return nil, j.corruptErr()
	}
	st := new(Store)
	if err := json.Unmarshal(repaired, st); err != nil {
		return nil, j.corruptErr()
	}
	st.normalize()

	// Never destroy evidence: the malformed bytes must exist on disk before
	// the rewrite makes them unreachable.
	if _, err := storage.Backup(j.path, original); err != nil {
		return nil, err
	}
	out, err := marshalStore(st)
	if err != nil {
		return nil, err
	}
	if err := storage.WriteAtomic(j.path, out, 0o644); err != nil {
		return nil, err
	}
	return st, nil
}

// repairTrailing strips excess trailing closing delimiters ('}' and ']',
// with interleaved whitespace) when closers outnumber openers. The counts
// ignore string context; that is acceptable because the target corruption
// shape is literal duplicated closers appended after valid JSON.
func repairTrailing(data []byte) ([]byte, bool) {
	excessBraces := bytes.Count(data, []byte{'}'}) - bytes.Count(data, []byte{'{'})
	excessBrackets := bytes.Count(data, []byte{']'}) - bytes.Count(data, []byte{'['})
	if excessBraces <= 0 && excessBrackets <= 0 {
		return nil, false
	}

	out := data
	for excessBraces > 0 || excessBrackets > 0 {
		out = bytes.TrimRight(out, " \t\r\n")
		if len(out) == 0 {
			return nil, false
		}
		switch out[len(out)-1] {
		case '}':
			if excessBraces == 0 {
				return nil, false
			}
			excessBraces--
		case ']':
			if excessBrackets == 0 {
				return nil, false
			}
			excessBrackets--
		default:
			// Excess closers that are not at the tail are outside the
			// documented corruption shape.
			return nil, false
		}
		out = out[:len(out)-1]
	}
	return out, true
}
