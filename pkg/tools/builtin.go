package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/coreagent/coreagent/pkg/sandbox"
)

// --- list_dir ---

type ListDirTool struct {
	jail *sandbox.Jail
}

func NewListDirTool(jail *sandbox.Jail) *ListDirTool { return &ListDirTool{jail: jail} }

func (t *ListDirTool) Name() string                   { return "list_dir" }
func (t *ListDirTool) Description() string            { return "List files and directories at a workspace-relative path." }
func (t *ListDirTool) ParallelPolicy() ParallelPolicy { return ReadOnly }

func (t *ListDirTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "Workspace-relative directory to list"},
			"recursive": map[string]any{"type": "boolean", "description": "Recurse into subdirectories"},
		},
		"required": []string{"path"},
	}
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	path, _ := args["path"].(string)
	recursive, _ := args["recursive"].(bool)

	resolved, err := t.jail.Resolve(path)
	if err != nil {
		return Err(err.Error()), nil
	}

	var lines []string
	if recursive {
		err = filepath.WalkDir(resolved, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if p == resolved {
				return nil
			}
			rel, relErr := filepath.Rel(resolved, p)
			if relErr != nil {
				rel = p
			}
			if d.IsDir() {
				lines = append(lines, "DIR:  "+rel)
			} else {
				lines = append(lines, "FILE: "+rel)
			}
			return nil
		})
	} else {
		var entries []os.DirEntry
		entries, err = os.ReadDir(resolved)
		for _, e := range entries {
			if e.IsDir() {
				lines = append(lines, "DIR:  "+e.Name())
			} else {
				lines = append(lines, "FILE: "+e.Name())
			}
		}
	}
	if err != nil {
		return Err(fmt.Sprintf("failed to list directory: %v", err)), nil
	}

	sort.Strings(lines)
	return Ok(strings.Join(lines, "\n")), nil
}

// --- read_file ---

type ReadFileTool struct {
	jail           *sandbox.Jail
	maxOutputBytes int
}

func NewReadFileTool(jail *sandbox.Jail, maxOutputBytes int) *ReadFileTool {
	return &ReadFileTool{jail: jail, maxOutputBytes: maxOutputBytes}
}

func (t *ReadFileTool) Name() string                   { return "read_file" }
func (t *ReadFileTool) Description() string            { return "Read the contents of a file in the workspace." }
func (t *ReadFileTool) ParallelPolicy() ParallelPolicy { return ReadOnly }

func (t *ReadFileTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "Workspace-relative file to read"},
			"max_bytes": map[string]any{"type": "integer", "description": "Override the configured output cap for this call"},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	path, _ := args["path"].(string)

	maxBytes := t.maxOutputBytes
	if n, ok := argInt(args, "max_bytes"); ok && n > 0 {
		maxBytes = n
	}

	resolved, err := t.jail.Resolve(path)
	if err != nil {
		return Err(err.Error()), nil
	}

	// os.Root guarantees the open itself cannot be redirected outside the
	// workspace by a symlink swapped in between Resolve and this call.
	root, err := t.jail.OpenRoot()
	if err != nil {
		return Err(fmt.Sprintf("failed to open sandbox root: %v", err)), nil
	}
	defer root.Close()

	rel, err := filepath.Rel(t.jail.RootPath(), resolved)
	if err != nil {
		return Err(err.Error()), nil
	}

	f, err := root.Open(rel)
	if err != nil {
		if os.IsNotExist(err) {
			return Err(fmt.Sprintf("file not found: %s", path)), nil
		}
		return Err(fmt.Sprintf("failed to read file: %v", err)), nil
	}
	defer f.Close()

	limit := int64(maxBytes)
	if limit <= 0 {
		limit = 1 << 20
	}
	content, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return Err(fmt.Sprintf("failed to read file: %v", err)), nil
	}
	return Ok(string(content)), nil
}

// --- write_file ---

type WriteFileTool struct {
	jail *sandbox.Jail
}

func NewWriteFileTool(jail *sandbox.Jail) *WriteFileTool { return &WriteFileTool{jail: jail} }

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write content to a file in the workspace, creating parent directories as needed."
}
func (t *WriteFileTool) ParallelPolicy() ParallelPolicy { return SerialOnly }

func (t *WriteFileTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Workspace-relative file to write"},
			"content": map[string]any{"type": "string", "description": "Content to write"},
			"append":  map[string]any{"type": "boolean", "description": "Append to the file instead of replacing it"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	appendMode, _ := args["append"].(bool)

	resolved, err := t.jail.Resolve(path)
	if err != nil {
		return Err(err.Error()), nil
	}

	root, err := t.jail.OpenRoot()
	if err != nil {
		return Err(fmt.Sprintf("failed to open sandbox root: %v", err)), nil
	}
	defer root.Close()

	rel, err := filepath.Rel(t.jail.RootPath(), resolved)
	if err != nil {
		return Err(err.Error()), nil
	}

	if dir := filepath.Dir(rel); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return Err(fmt.Sprintf("failed to create parent directories: %v", err)), nil
		}
	}

	if appendMode {
		f, err := root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return Err(fmt.Sprintf("failed to open file for append: %v", err)), nil
		}
		defer f.Close()
		if _, err := f.WriteString(content); err != nil {
			return Err(fmt.Sprintf("failed to append to file: %v", err)), nil
		}
		return Ok(fmt.Sprintf("appended %d bytes to %s", len(content), path)), nil
	}

	// Write-then-rename within the jail root keeps a crash mid-write from
	// leaving a truncated file behind; rename is atomic on the same
	// filesystem.
	tmpRel := fmt.Sprintf("%s.%d.tmp", rel, time.Now().UnixNano())
	f, err := root.OpenFile(tmpRel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Err(fmt.Sprintf("failed to write file: %v", err)), nil
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		_ = root.Remove(tmpRel)
		return Err(fmt.Sprintf("failed to write file: %v", err)), nil
	}
	if err := f.Close(); err != nil {
		_ = root.Remove(tmpRel)
		return Err(fmt.Sprintf("failed to finalize file write: %v", err)), nil
	}
	if err := root.Rename(tmpRel, rel); err != nil {
		_ = root.Remove(tmpRel)
		return Err(fmt.Sprintf("failed to finalize file write: %v", err)), nil
	}

	return Ok(fmt.Sprintf("wrote %d bytes to %s", len(content), path)), nil
}

// --- run_command ---

// shellMetacharacters are the operators whose presence means the command
// needs a real shell: pipes, redirects, backgrounding, sequencing,
// conditional chaining, command substitution, and backtick substitution.
const shellMetacharacters = "|<>&;`"

type RunCommandTool struct {
	workingDir     string
	defaultTimeout time.Duration
}

func NewRunCommandTool(workingDir string) *RunCommandTool {
	return &RunCommandTool{workingDir: workingDir, defaultTimeout: 60 * time.Second}
}

func (t *RunCommandTool) Name() string        { return "run_command" }
func (t *RunCommandTool) Description() string {
	return "Run a command in the workspace and return its output. Commands using shell operators (pipes, redirects, &&) run under a shell; everything else execs directly."
}
func (t *RunCommandTool) ParallelPolicy() ParallelPolicy { return SerialOnly }

func (t *RunCommandTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":     map[string]any{"type": "string", "description": "The command to run"},
			"cwd":         map[string]any{"type": "string", "description": "Workspace-relative working directory override"},
			"timeout_sec": map[string]any{"type": "number", "description": "Override the default 60s timeout; 0 disables it"},
		},
		"required": []string{"command"},
	}
}

func (t *RunCommandTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return Err("command is required"), nil
	}

	workingDir := t.workingDir
	if cwd, ok := args["cwd"].(string); ok && cwd != "" {
		workingDir = filepath.Join(t.workingDir, cwd)
	}

	timeout := t.defaultTimeout
	if raw, ok := args["timeout_sec"]; ok {
		switch v := raw.(type) {
		case float64:
			timeout = time.Duration(v * float64(time.Second))
		case int:
			timeout = time.Duration(v) * time.Second
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				timeout = time.Duration(n) * time.Second
			}
		}
	}

	var cmdCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		cmdCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		cmdCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	cmd, err := buildCommand(cmdCtx, command)
	if err != nil {
		return Err(err.Error()), nil
	}
	cmd.Dir = workingDir

	output, err := cmd.CombinedOutput()
	if cmdCtx.Err() != nil {
		return Err(fmt.Sprintf("command timed out after %s", timeout)), nil
	}
	if err != nil {
		return &Result{Output: string(output) + "\n" + err.Error(), IsError: true}, nil
	}
	return Ok(string(output)), nil
}

// buildCommand chooses between a direct exec and a shell invocation: a
// command containing no shell metacharacters or substitution syntax runs
// directly (no shell spawned in between), matching the common case of a
// single program with plain arguments.
func buildCommand(ctx context.Context, command string) (*exec.Cmd, error) {
	if needsShell(command) {
		return shellCommand(ctx, command), nil
	}
	argv, err := splitCommand(command)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command has no arguments after splitting")
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...), nil
}

func needsShell(command string) bool {
	if strings.ContainsAny(command, shellMetacharacters) {
		return true
	}
	return strings.Contains(command, "$(")
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// splitCommand tokenizes a shell-metacharacter-free command line into argv,
// honoring single and double quotes so a quoted argument can contain spaces.
func splitCommand(command string) ([]string, error) {
	var argv []string
	var current strings.Builder
	var quote rune
	inArg := false

	for _, r := range command {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				argv = append(argv, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command")
	}
	if inArg {
		argv = append(argv, current.String())
	}
	return argv, nil
}

// --- system_info ---

type SystemInfoTool struct {
	diskPath string
}

func NewSystemInfoTool(diskPath string) *SystemInfoTool { return &SystemInfoTool{diskPath: diskPath} }

func (t *SystemInfoTool) Name() string        { return "system_info" }
func (t *SystemInfoTool) Description() string {
	return "Report host information: os, cpu, memory, disk, or all four."
}
func (t *SystemInfoTool) ParallelPolicy() ParallelPolicy { return ReadOnly }

func (t *SystemInfoTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"info_type": map[string]any{
				"type":        "string",
				"enum":        []string{"os", "cpu", "memory", "disk", "all"},
				"description": "Which view of host information to report",
			},
		},
	}
}

func (t *SystemInfoTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	infoType, _ := args["info_type"].(string)
	if infoType == "" {
		infoType = "all"
	}

	switch infoType {
	case "os":
		return Ok(t.osView()), nil
	case "cpu":
		return Ok(t.cpuView()), nil
	case "memory":
		return Ok(t.memoryView()), nil
	case "disk":
		return Ok(t.diskView()), nil
	case "all":
		return Ok(strings.Join([]string{t.osView(), t.cpuView(), t.memoryView(), t.diskView()}, "\n")), nil
	default:
		return Err(fmt.Sprintf("unknown info_type %q: must be one of os, cpu, memory, disk, all", infoType)), nil
	}
}

func (t *SystemInfoTool) osView() string {
	info, err := host.Info()
	if err != nil {
		return fmt.Sprintf("os=%s arch=%s", runtime.GOOS, runtime.GOARCH)
	}
	return fmt.Sprintf("os=%s arch=%s platform=%s kernel=%s uptime_sec=%d", runtime.GOOS, runtime.GOARCH, info.Platform, info.KernelVersion, info.Uptime)
}

func (t *SystemInfoTool) cpuView() string {
	counts, err := cpu.Counts(true)
	if err != nil || counts == 0 {
		counts = runtime.NumCPU()
	}
	percents, err := cpu.PercentWithContext(context.Background(), 200*time.Millisecond, false)
	if err != nil || len(percents) == 0 {
		return fmt.Sprintf("cpus=%d", counts)
	}
	return fmt.Sprintf("cpus=%d utilization_percent=%.1f", counts, percents[0])
}

func (t *SystemInfoTool) memoryView() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Sprintf("memory unavailable: %v", err)
	}
	return fmt.Sprintf("memory_total_bytes=%d memory_used_bytes=%d memory_used_percent=%.1f", vm.Total, vm.Used, vm.UsedPercent)
}

func (t *SystemInfoTool) diskView() string {
	path := t.diskPath
	if path == "" {
		path = "/"
	}
	usage, err := disk.Usage(path)
	if err != nil {
		return fmt.Sprintf("disk unavailable: %v", err)
	}
	return fmt.Sprintf("disk_path=%s disk_total_bytes=%d disk_used_bytes=%d disk_used_percent=%.1f", path, usage.Total, usage.Used, usage.UsedPercent)
}

// --- web_fetch ---

type WebFetchTool struct {
	client         *http.Client
	maxOutputBytes int
	allowNetwork   bool
}

func NewWebFetchTool(maxOutputBytes int, allowNetwork bool) *WebFetchTool {
	return &WebFetchTool{client: &http.Client{Timeout: 15 * time.Second}, maxOutputBytes: maxOutputBytes, allowNetwork: allowNetwork}
}

func (t *WebFetchTool) Name() string                   { return "web_fetch" }
func (t *WebFetchTool) Description() string            { return "Fetch the body of an HTTP(S) URL." }
func (t *WebFetchTool) ParallelPolicy() ParallelPolicy { return ReadOnly }

func (t *WebFetchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":       map[string]any{"type": "string", "description": "The URL to fetch"},
			"max_bytes": map[string]any{"type": "integer", "description": "Override the configured output cap for this call"},
		},
		"required": []string{"url"},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	if !t.allowNetwork {
		return Err("network access is disabled by configuration"), nil
	}

	url, _ := args["url"].(string)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Err("url must start with http:// or https://"), nil
	}

	maxBytes := t.maxOutputBytes
	if n, ok := argInt(args, "max_bytes"); ok && n > 0 {
		maxBytes = n
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Err(fmt.Sprintf("invalid request: %v", err)), nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Err(fmt.Sprintf("fetch failed: %v", err)), nil
	}
	defer resp.Body.Close()

	limit := int64(maxBytes)
	if limit <= 0 {
		limit = 1 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Err(fmt.Sprintf("failed reading response: %v", err)), nil
	}

	if resp.StatusCode >= 400 {
		return Err(fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))), nil
	}
	return Ok(string(body)), nil
}

// argInt reads an integer-valued argument regardless of whether the JSON
// decoder handed it back as a float64, an int, or a numeric string.
func argInt(args map[string]any, key string) (int, bool) {
	raw, ok := args[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
