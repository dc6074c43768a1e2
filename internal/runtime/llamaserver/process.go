package llamaserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"
)

const (
	healthInterval = 250 * time.Millisecond
	stopTimeout    = 10 * time.Second
)

type process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

func startProcess(bin string, args []string, cfg Config) (*process, error) {
	// Not tied to the load context: the server lives as long as the model.
	cmd := exec.Command(bin, args...)
	cmd.Stdout = cfg.Output
	cmd.Stderr = cfg.Output
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// stop interrupts the server and kills it if it has not exited in time.
func (p *process) stop() {
	if p == nil {
		return
	}
	select {
	case <-p.done:
		return
	default:
	}
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		_ = p.cmd.Process.Kill()
	}
	select {
	case <-p.done:
	case <-time.After(stopTimeout):
		_ = p.cmd.Process.Kill()
		<-p.done
	}
}

func (p *process) exited() <-chan struct{} {
	if p == nil {
		return nil
	}
	return p.done
}

func freePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func baseURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// waitHealthy polls /health until the server reports ready. llama-server
// answers 503 while the model is still loading.
func waitHealthy(ctx context.Context, client *http.Client, url string, exited <-chan struct{}, waitErr func() error) error {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", url, ctx.Err())
		case <-exited:
			return fmt.Errorf("%s exited before becoming healthy: %v", Name, waitErr())
		case <-ticker.C:
		}
	}
}
