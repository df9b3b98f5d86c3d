package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AGORA_TEST_MODE") == "" {
			_ = os.Setenv("AGORA_TEST_MODE", "1")
		}
	})
}
