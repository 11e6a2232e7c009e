/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 17:58:06
 * @FilePath: \mood-diary\backend\internal\config\env_loader.go
 * @LastEditTime: 2025-10-30 10:12:44
 */
package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var (
	envOnce     sync.Once
	envOnceLock sync.Mutex
	skipEnvLoad bool
)

// LoadEnvFiles 从工作目录或最近的上级目录依次加载 .env.local 与 .env，
// .env.local 中的值优先，每个进程只执行一次。
func LoadEnvFiles() {
	if skipEnvLoad || os.Getenv("CONFIG_SKIP_ENV_LOAD") == "1" {
		return
	}

	envOnce.Do(func() {
		for _, name := range []string{".env.local", ".env"} {
			path, ok := findEnvFile(name)
			if !ok {
				continue
			}
			// Load 不会覆盖已有变量，先加载的文件优先。
			if err := godotenv.Load(path); err != nil {
				log.Printf("[config] skip env file %s: %v", path, err)
				continue
			}
			log.Printf("[config] loaded env file %s", path)
		}
	})
}

// SetEnvFileLoadingForTest 控制是否自动加载 env 文件，仅供测试使用。
func SetEnvFileLoadingForTest(enabled bool) {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()

	skipEnvLoad = !enabled
	envOnce = sync.Once{}
}

func findEnvFile(name string) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
