package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	conf "github.com/thecardroom/tcr/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()
var stag string
var cf *conf.Config
var app string

// InitLogger sets up the file log log/{network}/{app}_{date}.log. With
// console set, INFO and above are also written to stdout (DEBUG with
// --debug).
func InitLogger(cfg *conf.Config, appName string, console bool) (string, error) {
	now := time.Now()
	dir := filepath.Join(cfg.LogInfo.Path, cfg.Common.Network)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	lPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", appName, now.Format("20060102")))
	cf = cfg
	app = appName

	// Check -debug flag
	hasDebugFlag := false
	for _, arg := range os.Args {
		if arg == "-debug" || arg == "--debug" {
			hasDebugFlag = true
			break
		}
	}

	if hasDebugFlag {
		cfg.Common.Level = "alpha"
	} else {
		cfg.Common.Level = "prod"
	}

	rotator, err := rotatelogs.New(
		lPath,
		rotatelogs.WithMaxAge(time.Duration(cfg.LogInfo.MaxAgeHour)*time.Hour),
		rotatelogs.WithRotationTime(time.Duration(cfg.LogInfo.RotateHour)*time.Hour))
	if err != nil {
		return "", err
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "date",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	w := zapcore.AddSync(rotator)
	cw := zapcore.AddSync(os.Stdout)
	stag = cfg.Common.Level

	consoleLevel := zap.InfoLevel
	if stag == "alpha" {
		consoleLevel = zap.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, zap.DebugLevel)
	if console {
		core = zapcore.NewTee(
			core,
			zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), cw, consoleLevel),
		)
	}
	logger = zap.New(core).Named(cfg.Common.Network)

	logger.Info("logging init file start", zap.String("app", appName))
	return lPath, nil
}

func join(ctx []interface{}) string {
	var b bytes.Buffer
	for _, str := range ctx {
		b.WriteString(fmt.Sprintf("%v", str))
	}
	return b.String()
}

func Debug(ctx ...interface{}) {
	logger.Debug("debug", zap.String("Debug", join(ctx)))
}

// Info is a convenient alias for Root().Info
func Info(ctx ...interface{}) {
	logger.Info("info", zap.String("Info", join(ctx)))
}

// Warn is a convenient alias for Root().Warn
func Warn(ctx ...interface{}) {
	logger.Warn("warn", zap.String("Warn", join(ctx)))
}

// Error is a convenient alias for Root().Error
func Error(ctx ...interface{}) {
	s := join(ctx)
	logger.Error("error", zap.String("Err", s))
	if stag == "prod" && cf != nil && cf.LogInfo.AlertURL != "" {
		go sendTelegramAlert(cf, s)
	}
}

func Crit(ctx ...interface{}) {
	s := join(ctx)
	if stag == "prod" && cf != nil && cf.LogInfo.AlertURL != "" {
		sendTelegramAlert(cf, s)
	}
	logger.Fatal("panic", zap.String("Crit", s))
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = logger.Sync()
}

func sendTelegramAlert(cf *conf.Config, body string) bool {
	msg := "[" + cf.Common.ServiceName + "_" + app + "_" + cf.Common.Network + "] " + body

	pbytes, _ := json.Marshal(map[string]interface{}{"chat_id": cf.LogInfo.AlertChat, "text": msg})
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(cf.LogInfo.AlertURL, "application/json", bytes.NewBuffer(pbytes))
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
