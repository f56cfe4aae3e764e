package executor

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/config"
	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

const maxErrorLen = 200

// languageSpec описывает, как собрать и запустить решение на конкретном языке
// внутри одного долгоживущего контейнера.
type languageSpec struct {
	Image      string
	SourceFile string
	CompileCmd []string // пусто, если язык не компилируется
	RunCmd     []string
}

var languageSpecs = map[string]languageSpec{
	"javascript": {
		Image:      "node:20-alpine",
		SourceFile: "solution.js",
		RunCmd:     []string{"node", "solution.js"},
	},
	"python": {
		Image:      "python:3.12-alpine",
		SourceFile: "solution.py",
		RunCmd:     []string{"python3", "solution.py"},
	},
	"go": {
		Image:      "golang:1.22-alpine",
		SourceFile: "solution.go",
		CompileCmd: []string{"go", "build", "-o", "solution", "solution.go"},
		RunCmd:     []string{"./solution"},
	},
	"c": {
		Image:      "gcc:13-bookworm",
		SourceFile: "solution.c",
		CompileCmd: []string{"gcc", "-O2", "-o", "solution", "solution.c"},
		RunCmd:     []string{"./solution"},
	},
	"cpp": {
		Image:      "gcc:13-bookworm",
		SourceFile: "solution.cpp",
		CompileCmd: []string{"g++", "-O2", "-std=c++20", "-o", "solution", "solution.cpp"},
		RunCmd:     []string{"./solution"},
	},
	"rust": {
		Image:      "rust:1.77-alpine",
		SourceFile: "solution.rs",
		CompileCmd: []string{"rustc", "-O", "-o", "solution", "solution.rs"},
		RunCmd:     []string{"./solution"},
	},
	"java": {
		Image:      "eclipse-temurin:21-jdk-alpine",
		SourceFile: "Solution.java",
		CompileCmd: []string{"javac", "Solution.java"},
		RunCmd:     []string{"java", "Solution"},
	},
}

const workdir = "/sandbox"

// Executor выполняет решения игроков в изолированных Docker контейнерах, по одному
// долгоживущему контейнеру на отправку.
type Executor struct {
	config       config.SandboxConfig
	dockerClient *client.Client
	log          *logger.Logger
}

// NewExecutor создаёт новый executor
func NewExecutor(cfg config.SandboxConfig, log *logger.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Executor{
		config:       cfg,
		dockerClient: cli,
		log:          log,
	}, nil
}

// SupportsLanguage проверяет, поддерживается ли язык песочницей.
func SupportsLanguage(language string) bool {
	_, ok := languageSpecs[language]
	return ok
}

// Execute прогоняет решение против всех тест-кейсов задачи и возвращает итог отправки.
func (e *Executor) Execute(ctx context.Context, problem *domain.Problem, language, code string) (*domain.SubmissionResult, error) {
	spec, ok := languageSpecs[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	start := time.Now()

	containerID, err := e.createContainer(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox container: %w", err)
	}
	defer e.cleanup(containerID)

	if err := e.dockerClient.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start sandbox container: %w", err)
	}

	if err := e.injectSource(ctx, containerID, spec, code); err != nil {
		return nil, fmt.Errorf("failed to inject source: %w", err)
	}

	result := &domain.SubmissionResult{
		ProblemID:   problem.ID,
		TotalTests:  len(problem.TestCases),
		SubmittedAt: start,
	}

	if len(spec.CompileCmd) > 0 {
		buildCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		exitCode, _, stderr, err := e.runExec(buildCtx, containerID, spec.CompileCmd, "", e.config.BuildMemoryBytes, e.config.BuildCPUQuota)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("compile step failed: %w", err)
		}
		if exitCode != 0 {
			result.Tests = []domain.TestResult{{
				Error:       cleanError(stderr),
				FailureKind: "compile-error",
			}}
			result.AggregateExecutionMs = time.Since(start).Milliseconds()
			return result, nil
		}
	}

	for _, tc := range problem.TestCases {
		tr := e.runTestCase(ctx, containerID, spec, tc)
		result.Tests = append(result.Tests, tr)
		if tr.Passed {
			result.PassedTests++
		}
	}

	result.Passed = result.PassedTests == result.TotalTests && result.TotalTests > 0
	result.AggregateExecutionMs = time.Since(start).Milliseconds()

	e.log.Info("Submission executed",
		zap.String("problem_id", problem.ID),
		zap.String("language", language),
		zap.Int("passed", result.PassedTests),
		zap.Int("total", result.TotalTests),
	)

	return result, nil
}

// runTestCase выполняет решение на одном тест-кейсе и классифицирует итог.
func (e *Executor) runTestCase(ctx context.Context, containerID string, spec languageSpec, tc domain.TestCase) domain.TestResult {
	tr := domain.TestResult{
		Input:          tc.Input,
		ExpectedOutput: tc.ExpectedOutput,
	}

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	start := time.Now()
	exitCode, stdout, stderr, err := e.runExec(runCtx, containerID, spec.RunCmd, tc.Input, e.config.MemoryLimitBytes, e.config.CPUQuota)
	tr.ExecutionTimeMs = time.Since(start).Milliseconds()

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			tr.FailureKind = "timeout"
			tr.Error = "execution timed out"
			return tr
		}
		tr.FailureKind = "runtime-error"
		tr.Error = cleanError(err.Error())
		return tr
	}

	tr.ActualOutput = stdout

	if exitCode != 0 {
		tr.FailureKind = "runtime-error"
		tr.Error = cleanError(stderr)
		return tr
	}

	if normalizeOutput(stdout) == normalizeOutput(tc.ExpectedOutput) {
		tr.Passed = true
		return tr
	}

	tr.FailureKind = "wrong-answer"
	return tr
}

// createContainer создаёт контейнер с no-op командой, чтобы он жил, пока идёт проверка.
func (e *Executor) createContainer(ctx context.Context, spec languageSpec) (string, error) {
	containerConfig := &container.Config{
		Image:      spec.Image,
		Cmd:        []string{"sleep", "600"},
		WorkingDir: workdir,
		Tty:        false,
	}

	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			Memory:     e.config.BuildMemoryBytes,
			MemorySwap: e.config.BuildMemoryBytes,
			CPUQuota:   e.config.BuildCPUQuota,
			CPUPeriod:  100000,
			PidsLimit:  &e.config.PidsLimit,
		},
		SecurityOpt:    []string{"no-new-privileges:true"},
		CapDrop:        []string{"ALL"},
		ReadonlyRootfs: false,
		Tmpfs: map[string]string{
			workdir: "rw,exec,nosuid,size=64m",
		},
		AutoRemove: false,
	}
	if e.config.NetworkDisabled {
		hostConfig.NetworkMode = "none"
	}

	resp, err := e.dockerClient.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// injectSource копирует исходный код решения внутрь контейнера через tar-архив в памяти.
func (e *Executor) injectSource(ctx context.Context, containerID string, spec languageSpec, code string) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	hdr := &tar.Header{
		Name: spec.SourceFile,
		Mode: 0644,
		Size: int64(len(code)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := tw.Write([]byte(code)); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}

	return e.dockerClient.CopyToContainer(ctx, containerID, workdir, &buf, container.CopyToContainerOptions{})
}

// runExec запускает команду внутри уже работающего контейнера и возвращает её вывод.
func (e *Executor) runExec(ctx context.Context, containerID string, cmd []string, stdin string, memLimit, cpuQuota int64) (int, string, string, error) {
	execConfig := container.ExecOptions{
		Cmd:          cmd,
		AttachStdin:  stdin != "",
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   workdir,
	}

	execResp, err := e.dockerClient.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return 0, "", "", fmt.Errorf("exec create failed: %w", err)
	}

	attachResp, err := e.dockerClient.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return 0, "", "", fmt.Errorf("exec attach failed: %w", err)
	}
	defer attachResp.Close()

	if stdin != "" {
		_, _ = attachResp.Conn.Write([]byte(stdin))
	}
	_ = attachResp.CloseWrite()

	var stdout, stderr bytes.Buffer
	if err := demuxStream(attachResp.Reader, &stdout, &stderr); err != nil {
		return 0, "", "", fmt.Errorf("reading exec output: %w", err)
	}

	select {
	case <-ctx.Done():
		return 0, stdout.String(), stderr.String(), ctx.Err()
	default:
	}

	inspect, err := e.dockerClient.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return 0, "", "", fmt.Errorf("exec inspect failed: %w", err)
	}

	return inspect.ExitCode, stdout.String(), stderr.String(), nil
}

// demuxStream разбирает мультиплексированный поток Docker exec на stdout/stderr.
func demuxStream(r io.Reader, stdout, stderr *bytes.Buffer) error {
	header := make([]byte, 8)
	for {
		_, err := io.ReadFull(r, header)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}

		size := int(header[4])<<24 | int(header[5])<<16 | int(header[6])<<8 | int(header[7])
		if size == 0 {
			continue
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}

		switch header[0] {
		case 1:
			stdout.Write(payload)
		case 2:
			stderr.Write(payload)
		}
	}
}

// normalizeOutput схлопывает пробельные символы, чтобы сравнение вывода не зависело
// от хвостовых переводов строк и количества пробелов.
func normalizeOutput(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanError берёт первую непустую строку stderr и обрезает её до разумной длины.
func cleanError(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxErrorLen {
			line = line[:maxErrorLen]
		}
		return line
	}
	return ""
}

// cleanup останавливает и удаляет контейнер.
func (e *Executor) cleanup(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = e.dockerClient.ContainerStop(ctx, containerID, container.StopOptions{})

	if err := e.dockerClient.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		e.log.Error("Failed to remove sandbox container",
			zap.Error(err),
			zap.String("container_id", containerID),
		)
	}
}

// Close закрывает Docker клиент
func (e *Executor) Close() error {
	if e.dockerClient != nil {
		return e.dockerClient.Close()
	}
	return nil
}
