package ops

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/tree"
)

func init() {
	interp.Register("shell", shellHandler)
}

const defaultShellHeader = "OS Shell Tool response block"

// shellHandler spawns a shell in the document's directory, feeds it prompt
// on stdin, and captures stdout as the operation's output fragment. Stderr
// is discarded from the tree but logged for trace purposes.
func shellHandler(ctx context.Context, rt *interp.Runtime, node *tree.Node) (interp.Directive, error) {
	prompt, _ := stringParam(node.Params, "prompt")

	env := os.Environ()
	for k, v := range rt.Svc.Config.ShellEnv {
		env = append(env, k+"="+v)
	}

	cmd := exec.CommandContext(ctx, "sh")
	cmd.Dir = rt.BaseDir
	cmd.Env = env
	cmd.Stdin = strings.NewReader(prompt + "\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	logger := interp.LoggerFromContext(ctx)
	if stderr.Len() > 0 {
		logger.Debug("shell stderr", "node_key", node.Key, "stderr", stderr.String())
	}
	if err != nil {
		return interp.Directive{}, ferrors.Wrap(ferrors.KindShellError, "shell", err)
	}

	fragment := headeredFragment(node.Params, defaultShellHeader, strings.TrimRight(stdout.String(), "\n"), node.Level)

	mode, target, err := interp.MergeParams(rt, node, rt.Svc.Config.DefaultOperation)
	if err != nil {
		return interp.Directive{}, err
	}
	if err := interp.ApplyMerge(rt, node, target, mode, fragment); err != nil {
		return interp.Directive{}, err
	}
	return interp.Directive{Kind: interp.DirectiveAdvance}, nil
}
