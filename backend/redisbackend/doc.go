// Package redisbackend implements backend.Backend on a Redis server using
// github.com/redis/go-redis/v9. Each method issues exactly one command; no
// retries, pipelining, or transactions are added on top, so connection and
// timeout failures surface exactly as the go-redis client reports them.
//
// Configuration
//
//	PYREDIS_URL       full redis:// URL, overrides everything below
//	PYREDIS_HOST      server host      (default "localhost")
//	PYREDIS_PORT      server port      (default 6379)
//	PYREDIS_PASSWORD  AUTH password    (default none)
//	PYREDIS_DB        database index   (default 0)
//
// Example:
//
//	b, err := redisbackend.NewFromEnv(ctx)
//	if err != nil { return err }
//	defer b.Close()
//
// To share a client the application already manages, use NewFromClient.
package redisbackend
