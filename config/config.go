package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mazerun/movement"
	"mazerun/world"
)

// Config 服务端运行配置，来自环境变量（可由 .env 提供）
type Config struct {
	Addr        string
	LogFile     string
	LogConsole  bool
	Debug       bool
	WorldFile   string   // YAML，为空则使用内置迷宫
	RecordDir   string   // 广播快照日志目录，为空则不记录
	SessionDB   string   // 连接索引 SQLite 路径，为空则不记录
	Origins     []string // CORS 来源
	DefaultRoom string
}

// Load 先加载 .env（不存在则忽略），再读取环境变量
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Config{
		Addr:        getEnv("MAZERUN_ADDR", ":8080"),
		LogFile:     getEnv("MAZERUN_LOG_FILE", "app.log"),
		LogConsole:  getBool("MAZERUN_LOG_CONSOLE", true),
		Debug:       getBool("MAZERUN_DEBUG", false),
		WorldFile:   getEnv("MAZERUN_WORLD_FILE", ""),
		RecordDir:   getEnv("MAZERUN_RECORD_DIR", ""),
		SessionDB:   getEnv("MAZERUN_SESSION_DB", ""),
		Origins:     splitList(getEnv("MAZERUN_CORS_ORIGINS", "*")),
		DefaultRoom: getEnv("MAZERUN_DEFAULT_ROOM", "room-1"),
	}, nil
}

// WorldFile 世界与移动参数的 YAML 文件结构
type WorldFile struct {
	World    world.Definition `yaml:"world"`
	Movement movement.Tuning  `yaml:"movement"`
}

// LoadWorld 读取 YAML；path 为空时返回内置迷宫与默认参数
func LoadWorld(path string) (*world.World, movement.Tuning, error) {
	if path == "" {
		return world.Default(), movement.DefaultTuning(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, movement.Tuning{}, err
	}
	wf := WorldFile{Movement: movement.DefaultTuning()}
	if err := yaml.Unmarshal(raw, &wf); err != nil {
		return nil, movement.Tuning{}, fmt.Errorf("%s: %w", path, err)
	}
	w, err := wf.World.Build()
	if err != nil {
		return nil, movement.Tuning{}, fmt.Errorf("%s: %w", path, err)
	}
	return w, wf.Movement, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
