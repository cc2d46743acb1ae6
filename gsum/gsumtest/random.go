package gsumtest

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/gordian-engine/gorvote/gsum"
)

// ScriptedRandomSource is a [gsum.RandomSource] that returns
// predetermined shares in order.
// It panics when the script is exhausted.
//
// Salts are a fixed 32-byte pattern derived from a counter,
// so every salt is distinct.
type ScriptedRandomSource struct {
	mu     sync.Mutex
	shares []int64
	salts  int
}

func NewScriptedRandomSource(shares ...int64) *ScriptedRandomSource {
	return &ScriptedRandomSource{shares: shares}
}

func (s *ScriptedRandomSource) Share() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.shares) == 0 {
		panic(fmt.Errorf("scripted random source exhausted"))
	}
	v := s.shares[0]
	s.shares = s.shares[1:]
	return v
}

func (s *ScriptedRandomSource) Salt() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.salts++
	return bytes.Repeat([]byte{byte(s.salts)}, 32)
}

// Remaining reports how many scripted shares have not been consumed.
func (s *ScriptedRandomSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shares)
}

var _ gsum.RandomSource = (*ScriptedRandomSource)(nil)
