package components

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thecardroom/tcr/internal/dashboard/styles"
)

// zap ISO8601TimeEncoder layout
const logTimeLayout = "2006-01-02T15:04:05.000Z0700"

// LogViewer는 로그 파일 뷰어. It tails log/{network}/{app}_{date}.log of
// one of the tools sharing the log directory.
type LogViewer struct {
	logDir      string
	network     string
	apps        []string
	appIndex    int
	lines       []LogLine
	maxLines    int
	lastModTime time.Time
	now         func() time.Time
}

// LogLine은 파싱된 로그 라인
type LogLine struct {
	Time    string
	Level   string
	Message string
	Raw     string
}

// NewLogViewer는 새 로그 뷰어 생성
func NewLogViewer(logDir, network string, apps []string, maxLines int) *LogViewer {
	if len(apps) == 0 {
		apps = []string{"tcr"}
	}
	return &LogViewer{
		logDir:   logDir,
		network:  network,
		apps:     apps,
		maxLines: maxLines,
		lines:    make([]LogLine, 0),
		now:      time.Now,
	}
}

// SetNetwork follows the network of the loaded project data.
func (lv *LogViewer) SetNetwork(network string) {
	if network == lv.network {
		return
	}
	lv.network = network
	lv.lines = nil
	lv.lastModTime = time.Time{}
}

// NextApp switches to the log of the next tool.
func (lv *LogViewer) NextApp() {
	lv.appIndex = (lv.appIndex + 1) % len(lv.apps)
	lv.lines = nil
	lv.lastModTime = time.Time{}
}

func (lv *LogViewer) App() string {
	return lv.apps[lv.appIndex]
}

// GetLogPath는 현재 앱의 오늘 로그 파일 경로 반환
func (lv *LogViewer) GetLogPath() string {
	today := lv.now().Format("20060102")
	return filepath.Join(lv.logDir, lv.network, fmt.Sprintf("%s_%s.log", lv.App(), today))
}

// Refresh는 로그 파일을 다시 읽음
func (lv *LogViewer) Refresh() error {
	logPath := lv.GetLogPath()

	info, err := os.Stat(logPath)
	if err != nil {
		lv.lines = []LogLine{{
			Level:   "INFO",
			Message: fmt.Sprintf("로그 파일 없음: %s", logPath),
		}}
		return nil
	}

	// 수정 시간이 같으면 스킵
	if info.ModTime().Equal(lv.lastModTime) {
		return nil
	}
	lv.lastModTime = info.ModTime()

	file, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var allLines []LogLine
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		allLines = append(allLines, parseLine(scanner.Text()))
		if len(allLines) > 4*lv.maxLines {
			allLines = allLines[len(allLines)-lv.maxLines:]
		}
	}

	if len(allLines) > lv.maxLines {
		allLines = allLines[len(allLines)-lv.maxLines:]
	}

	lv.lines = allLines
	return scanner.Err()
}

// parseLine reads one JSON entry written by common/logger:
// {"level":"INFO","date":"...","logger":"preprod","msg":"info","Info":"message"}
func parseLine(line string) LogLine {
	result := LogLine{Raw: line, Level: "INFO"}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		result.Message = truncate(line, 80)
		return result
	}

	if lvl, ok := entry["level"].(string); ok {
		result.Level = lvl
	}
	if date, ok := entry["date"].(string); ok {
		if t, err := time.Parse(logTimeLayout, date); err == nil {
			result.Time = t.Format("15:04:05")
		} else {
			result.Time = date
		}
	}
	for _, key := range []string{"Info", "Debug", "Warn", "Err", "Crit"} {
		if s, ok := entry[key].(string); ok {
			result.Message = s
			break
		}
	}
	if result.Message == "" {
		result.Message, _ = entry["msg"].(string)
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// GetLines는 현재 로그 라인들 반환
func (lv *LogViewer) GetLines() []LogLine {
	return lv.lines
}

// Render는 로그 뷰어를 문자열로 렌더링
func (lv *LogViewer) Render(width int) string {
	var b strings.Builder

	title := fmt.Sprintf("LOGS [%s]", lv.App())
	b.WriteString(styles.HeaderStyle.Render(title))
	b.WriteString("\n")

	if len(lv.lines) == 0 {
		b.WriteString(styles.MutedStyle.Render("  로그가 없습니다"))
		return b.String()
	}

	maxMsgLen := width - 20
	if maxMsgLen < 20 {
		maxMsgLen = 20
	}
	for _, line := range lv.lines {
		timeStr := line.Time
		if timeStr == "" {
			timeStr = "        "
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			styles.MutedStyle.Render(timeStr),
			styles.LogLevelStyle(line.Level).Render(fmt.Sprintf("%-5s", line.Level)),
			truncate(line.Message, maxMsgLen)))
	}

	return b.String()
}
