// internal/actuators/controller.go
package actuators

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"basin-gateway/internal/data"
	"basin-gateway/internal/state"
)

// ErrUnknownDevice marks a command addressed to a device that does not
// exist.
var ErrUnknownDevice = errors.New("unknown actuator")

// SystemActor is the audit identity used when a command arrives outside
// an authenticated context.
const SystemActor = "system"

// Devices are the controllable actuators.
var Devices = []string{"pump", "heater"}

// Command is a partial update: nil fields keep the current value.
type Command struct {
	State *string `json:"state"`
	Mode  *string `json:"mode"`
}

// Controller holds per-device on/off + auto/manual state, persists it
// on every mutation and appends one audit line per accepted command.
type Controller struct {
	mu      sync.Mutex
	file    *state.File[map[string]data.ActuatorState]
	logPath string
}

func NewController(statePath, logPath string) *Controller {
	return &Controller{
		file:    state.NewFile[map[string]data.ActuatorState](statePath),
		logPath: logPath,
	}
}

// Init seeds the default {off, auto} state and an empty audit log on
// first run.
func (c *Controller) Init() error {
	defaults := make(map[string]data.ActuatorState, len(Devices))
	now := time.Now().UTC().Truncate(time.Second)
	for _, device := range Devices {
		defaults[device] = data.ActuatorState{State: "off", Mode: "auto", LastChanged: now}
	}
	if err := c.file.SeedIfAbsent(defaults); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(c.logPath); os.IsNotExist(err) {
		return os.WriteFile(c.logPath, nil, 0o644)
	}
	return nil
}

// Get returns the current state of device.
func (c *Controller) Get(device string) (data.ActuatorState, error) {
	if !known(device) {
		return data.ActuatorState{}, ErrUnknownDevice
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()[device], nil
}

// Apply executes an operator command. Unspecified fields retain the
// current value; lastChanged always refreshes, a same-value command
// still counts as an operator action.
func (c *Controller) Apply(device string, cmd Command, actor string) (data.ActuatorState, error) {
	if !known(device) {
		return data.ActuatorState{}, ErrUnknownDevice
	}
	if actor == "" {
		actor = SystemActor
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	all := c.loadLocked()
	current := all[device]

	updated := data.ActuatorState{
		State:       normalizeState(cmd.State, current.State),
		Mode:        normalizeMode(cmd.Mode, current.Mode),
		LastChanged: time.Now().UTC().Truncate(time.Second),
	}
	all[device] = updated

	if err := c.file.Save(all); err != nil {
		return data.ActuatorState{}, err
	}
	line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s",
		updated.LastChanged.Format(time.RFC3339), device, updated.State, updated.Mode, actor)
	if err := c.appendLog(line); err != nil {
		return data.ActuatorState{}, err
	}
	return updated, nil
}

// AuditTail returns up to limit most recent audit lines.
func (c *Controller) AuditTail(limit int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return []string{}, nil
	}
	lines := strings.Split(content, "\n")
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

func (c *Controller) loadLocked() map[string]data.ActuatorState {
	all := c.file.Load(nil)
	if all == nil {
		all = make(map[string]data.ActuatorState)
	}
	now := time.Now().UTC().Truncate(time.Second)
	for _, device := range Devices {
		if _, ok := all[device]; !ok {
			all[device] = data.ActuatorState{State: "off", Mode: "auto", LastChanged: now}
		}
	}
	return all
}

func (c *Controller) appendLog(line string) error {
	f, err := os.OpenFile(c.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func known(device string) bool {
	for _, d := range Devices {
		if d == device {
			return true
		}
	}
	return false
}

func normalizeState(requested *string, current string) string {
	if requested == nil {
		return current
	}
	if *requested == "on" {
		return "on"
	}
	return "off"
}

func normalizeMode(requested *string, current string) string {
	if requested == nil {
		return current
	}
	if *requested == "manual" {
		return "manual"
	}
	return "auto"
}
