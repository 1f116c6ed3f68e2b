package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    6 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

func (c *Client) call(cmd CommandType, payload any, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows retrieves every tracked window.
func (c *Client) ListWindows() ([]WindowInfo, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// ListRegions retrieves the regions and their members.
func (c *Client) ListRegions() ([]RegionInfo, error) {
	var data RegionsData
	if err := c.call(CommandListRegions, nil, &data); err != nil {
		return nil, err
	}
	return data.Regions, nil
}

// Reenumerate asks the daemon to forget every window and rediscover them.
func (c *Client) Reenumerate() error {
	return c.call(CommandReenumerate, nil, nil)
}

// Activate brings window h to the foreground.
func (c *Client) Activate(h desktop.Handle) error {
	return c.call(CommandActivate, WindowPayload{Handle: uint64(h)}, nil)
}

// ToggleCompact flips the compact flag of window h and returns the new value.
func (c *Client) ToggleCompact(h desktop.Handle) (bool, error) {
	var data CompactData
	if err := c.call(CommandToggleCompact, WindowPayload{Handle: uint64(h)}, &data); err != nil {
		return false, err
	}
	return data.Compact, nil
}

// FitWindow maximises window h inside its region and returns the geometry
// the daemon requested.
func (c *Client) FitWindow(h desktop.Handle) (*FitData, error) {
	var data FitData
	if err := c.call(CommandFitWindow, WindowPayload{Handle: uint64(h)}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GroupRegion moves every member of region into the region's fitted bounds.
func (c *Client) GroupRegion(region int) (*GroupData, error) {
	var data GroupData
	if err := c.call(CommandGroupRegion, RegionPayload{Region: region}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
