// Package testing switches the process into test mode when imported for side
// effects: no Kafka publishing and no Redis connection from app.Open.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		_ = os.Setenv("LEDGER_TEST_MODE", "1")
		_ = os.Unsetenv("KAFKA_BROKERS")
		_ = os.Unsetenv("REDIS_ADDR")
	})
}
