package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	wasi "github.com/wasirun/preview1/imports/wasi_snapshot_preview1"
	"github.com/wasirun/preview1/internal/dispatch"
	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/hostconfig"
	"github.com/wasirun/preview1/internal/hostenv"
	"github.com/wasirun/preview1/internal/hostlog"
	"github.com/wasirun/preview1/internal/iostream"
	"github.com/wasirun/preview1/internal/vfs"
	"github.com/wasirun/preview1/internal/wasip1"
)

type runOptions struct {
	mounts    []string
	envs      []string
	args      []string
	dumpState bool
}

func newRunCmd(cfg *hostconfig.Config) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <script.json>",
		Short: "replay a JSON syscall script against the wasi_snapshot_preview1 host surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, cfg, opts, args[0])
		},
	}
	cmd.Flags().StringArrayVar(&opts.mounts, "mount", nil,
		"host path to preopen, as <host path>[:<guest path>][:ro]; repeatable")
	cmd.Flags().StringArrayVar(&opts.envs, "env", nil,
		"key=value environment variable exposed via environ_get; repeatable")
	cmd.Flags().StringArrayVar(&opts.args, "arg", nil,
		"argv entry exposed via args_get, in order; repeatable")
	cmd.Flags().BoolVar(&opts.dumpState, "dump-state", false,
		"print the open-file table after replay completes")
	return cmd
}

// newInspectCmd is "run" plus a forced --dump-state, matching
// dispatch.Context.DumpOpenFiles's doc comment ("cmd/wasirun's
// inspect command").
func newInspectCmd(cfg *hostconfig.Config) *cobra.Command {
	cmd := newRunCmd(cfg)
	cmd.Use = "inspect <script.json>"
	cmd.Short = "replay a script, then dump the resulting open-file table"
	inner := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Flags().Set("dump-state", "true"); err != nil {
			return err
		}
		return inner(cmd, args)
	}
	return cmd
}

func runScript(cmd *cobra.Command, cfg *hostconfig.Config, opts *runOptions, scriptPath string) error {
	script, err := LoadScript(scriptPath)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log := hostlog.New("wasirun", level)

	env := hostenv.Default()

	var environ []string
	for _, kv := range opts.envs {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("invalid --env %q: want key=value", kv)
		}
		environ = append(environ, kv)
	}
	argv := append([]string{"wasirun"}, opts.args...)

	ctx := dispatch.New(cfg, log, env.Clock, argv, environ)
	defer ctx.Close()

	nextDriverID := 0
	allocID := func() int { nextDriverID++; return nextDriverID }

	root := vfs.NewRootDriver(allocID())
	ctx.RegisterDriver(root)

	stdio := vfs.NewStdioDriver(allocID())
	ctx.RegisterDriver(stdio)
	stopPumps := wireStdio(stdio, ctx, env, cfg)
	defer stopPumps()

	if len(opts.mounts) == 0 {
		// No explicit --mount: preopen cfg.PreopenDirName against the
		// current directory so fd_prestat_get still has the
		// conventional first slot a guest expects.
		opts.mounts = []string{"." + ":" + cfg.PreopenDirName}
	}
	for _, m := range opts.mounts {
		if err := mountHost(root, ctx, allocID, cfg, m); err != nil {
			return err
		}
	}

	module := wasi.New(ctx)
	module.Exit = func(code uint32) {
		log.Infof("proc_exit(%d)", code)
	}
	fns := module.Functions()

	buf := make([]byte, script.MemorySize)
	mem := guestmem.New(buf)

	for i, call := range script.Calls {
		for _, poke := range call.Pokes {
			b, perr := poke.bytes()
			if perr != nil {
				return fmt.Errorf("call %d: decoding poke: %w", i, perr)
			}
			if werr := mem.Write(poke.Offset, b); werr != nil {
				return fmt.Errorf("call %d: applying poke: %w", i, werr)
			}
		}
		fn, ok := fns[call.Syscall]
		if !ok {
			return fmt.Errorf("call %d: unknown syscall %q", i, call.Syscall)
		}
		errno := fn.Fn(context.Background(), mem, call.Params)
		log.Syscall(call.Syscall, paramFd(call.Params)).Infof("-> %s", errno.Name())
		if call.ExpectErrno != "" && errno.Name() != call.ExpectErrno {
			return fmt.Errorf("call %d (%s): expected %s, got %s", i, call.Syscall, call.ExpectErrno, errno.Name())
		}
	}

	if opts.dumpState {
		for _, line := range ctx.DumpOpenFiles() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	}
	return nil
}

func paramFd(params []uint64) uint32 {
	if len(params) == 0 {
		return 0
	}
	return uint32(params[0])
}

func parseMount(spec string) (hostPath, guestPath string, ro bool) {
	parts := strings.Split(spec, ":")
	hostPath = parts[0]
	guestPath = hostPath
	if len(parts) > 1 && parts[1] != "" {
		guestPath = parts[1]
	}
	if len(parts) > 2 && parts[2] == "ro" {
		ro = true
	}
	return hostPath, guestPath, ro
}

// mountHost opens hostPath via the driver spec's ro flag selects,
// mounts it under root at guestPath, and preopens it on ctx so the
// guest sees it via fd_prestat_get/fd_prestat_dir_name.
func mountHost(root *vfs.RootDriver, ctx *dispatch.Context, allocID func() int, cfg *hostconfig.Config, spec string) error {
	hostPath, guestPath, ro := parseMount(spec)

	var driver vfs.Driver
	var rootHandle int64
	var err error
	if ro {
		d := vfs.NewReadOnlyDriver(allocID(), os.DirFS(hostPath))
		rootHandle, _, err = d.Open(0, ".", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
		driver = d
	} else {
		d := vfs.NewReadWriteDriver(allocID(), vfs.NewOSHostFS(hostPath), os.FileMode(cfg.Umask))
		rootHandle, _, err = d.Open(0, ".", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
		driver = d
	}
	if err != nil {
		return fmt.Errorf("mounting %s: %w", spec, err)
	}
	ctx.RegisterDriver(driver)
	root.Mount(guestPath, driver, rootHandle)

	preopenHandle, _, err := root.Open(0, guestPath, 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	if err != nil {
		return fmt.Errorf("preopening %s: %w", guestPath, err)
	}
	ctx.Preopen(root.ID(), preopenHandle, guestPath, wasip1.DirRights, wasip1.DirRights|wasip1.BaseRightsRW)
	return nil
}

// wireStdio registers three stream-backed handles on stdio, wires fd
// 0/1/2 to them, and pumps bytes between the process's real stdio and
// the Streams backing them. The returned func stops the pumps by
// destroying the streams, waking any blocked Read/Write.
func wireStdio(stdio *vfs.StdioDriver, ctx *dispatch.Context, env *hostenv.Env, cfg *hostconfig.Config) func() {
	in := iostream.New(cfg.StreamBufferSize)
	out := iostream.New(cfg.StreamBufferSize)
	errS := iostream.New(cfg.StreamBufferSize)

	inH := stdio.AddStream(in, false)
	outH := stdio.AddStream(out, true)
	errH := stdio.AddStream(errS, true)

	ctx.SetStdio(0, stdio.ID(), inH, wasip1.BaseRightsR)
	ctx.SetStdio(1, stdio.ID(), outH, wasip1.BaseRightsW)
	ctx.SetStdio(2, stdio.ID(), errH, wasip1.BaseRightsW)

	stdin, stdout, stderr := env.Stdin, env.Stdout, env.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	go pumpIn(stdin, in)
	go pumpOut(out, stdout)
	go pumpOut(errS, stderr)

	return func() {
		in.Destroy()
		out.Destroy()
		errS.Destroy()
	}
}

func pumpIn(r io.Reader, s *iostream.Stream) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if werr := s.Write(chunk); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func pumpOut(s *iostream.Stream, w io.Writer) {
	for {
		data, err := s.Read()
		if err != nil {
			return
		}
		if len(data) > 0 {
			if _, werr := w.Write(data); werr != nil {
				return
			}
		}
	}
}
