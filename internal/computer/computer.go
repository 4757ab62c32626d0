// File: internal/computer/computer.go
package computer

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cycle-cli/internal/config"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
)

const (
	// ToolName is the name the model uses to call the computer tool.
	ToolName = "computer"
	// ToolType is the provider-defined tool version.
	ToolType = "computer_20241022"

	DefaultMaxWidth    = 1280
	DefaultTypingDelay = 12 * time.Millisecond
)

// Action is one of the closed set of operations the computer tool performs.
type Action string

const (
	ActionKey            Action = "key"
	ActionType           Action = "type"
	ActionMouseMove      Action = "mouse_move"
	ActionLeftClick      Action = "left_click"
	ActionLeftClickDrag  Action = "left_click_drag"
	ActionRightClick     Action = "right_click"
	ActionMiddleClick    Action = "middle_click"
	ActionDoubleClick    Action = "double_click"
	ActionScreenshot     Action = "screenshot"
	ActionCursorPosition Action = "cursor_position"
)

// paramContract says which of text and coordinate an action takes.
type paramContract int

const (
	needsCoordinate paramContract = iota
	needsText
	needsNothing
)

var contracts = map[Action]paramContract{
	ActionMouseMove:      needsCoordinate,
	ActionLeftClickDrag:  needsCoordinate,
	ActionKey:            needsText,
	ActionType:           needsText,
	ActionLeftClick:      needsNothing,
	ActionRightClick:     needsNothing,
	ActionMiddleClick:    needsNothing,
	ActionDoubleClick:    needsNothing,
	ActionScreenshot:     needsNothing,
	ActionCursorPosition: needsNothing,
}

// validatedAction is an action whose parameters passed the contract check.
// Coordinates are still in model space.
type validatedAction struct {
	action Action
	text   string
	x, y   int
}

type actionHandler func(ctx context.Context, a validatedAction) (tools.Outcome, error)

// Options tunes a Tool.
type Options struct {
	MaxWidth      int
	TypingDelay   time.Duration
	DisplayNumber int
}

// OptionsFromConfig maps the computer section of the configuration.
func OptionsFromConfig(cfg config.ComputerConfig) Options {
	return Options{
		MaxWidth:      cfg.MaxWidth,
		TypingDelay:   cfg.TypingDelay,
		DisplayNumber: cfg.DisplayNumber,
	}
}

// Tool executes validated mouse, keyboard and screen actions on a Desktop.
type Tool struct {
	logger   *zap.Logger
	desktop  Desktop
	scaling  ScalingContext
	opts     Options
	handlers map[Action]actionHandler
}

var _ tools.Tool = (*Tool)(nil)

// New reads the screen geometry once and builds the tool around it.
func New(logger *zap.Logger, desktop Desktop, opts Options) (*Tool, error) {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	if opts.TypingDelay < 0 {
		opts.TypingDelay = DefaultTypingDelay
	}

	var width, height int
	err := offload("screen size", func() (err error) {
		width, height, err = desktop.ScreenSize()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read screen geometry: %w", err)
	}
	scaling, err := NewScalingContext(width, height, opts.MaxWidth)
	if err != nil {
		return nil, err
	}

	t := &Tool{
		logger:   logger.Named("computer"),
		desktop:  desktop,
		scaling:  scaling,
		opts:     opts,
		handlers: make(map[Action]actionHandler),
	}
	t.registerHandlers()

	t.logger.Info("Computer tool ready",
		zap.Int("real_width", scaling.RealWidth),
		zap.Int("real_height", scaling.RealHeight),
		zap.Int("target_width", scaling.TargetWidth),
		zap.Int("target_height", scaling.TargetHeight),
		zap.Float64("scale", scaling.Scale))
	return t, nil
}

func (t *Tool) registerHandlers() {
	t.handlers[ActionMouseMove] = t.handleMouseMove
	t.handlers[ActionLeftClickDrag] = t.handleLeftClickDrag
	t.handlers[ActionKey] = t.handleKey
	t.handlers[ActionType] = t.handleType
	t.handlers[ActionLeftClick] = t.clickHandler(ButtonLeft, false, "Left click performed.")
	t.handlers[ActionRightClick] = t.clickHandler(ButtonRight, false, "Right click performed.")
	t.handlers[ActionMiddleClick] = t.clickHandler(ButtonMiddle, false, "Middle click performed.")
	t.handlers[ActionDoubleClick] = t.clickHandler(ButtonLeft, true, "Double click performed.")
	t.handlers[ActionScreenshot] = t.handleScreenshot
	t.handlers[ActionCursorPosition] = t.handleCursorPosition
}

// Name implements tools.Tool.
func (t *Tool) Name() string { return ToolName }

// Spec implements tools.Tool. The model sees the target geometry.
func (t *Tool) Spec() tools.Spec {
	return tools.Spec{
		Name:            ToolName,
		Type:            ToolType,
		DisplayWidthPx:  t.scaling.TargetWidth,
		DisplayHeightPx: t.scaling.TargetHeight,
		DisplayNumber:   t.opts.DisplayNumber,
	}
}

// Scaling returns the geometry computed at construction.
func (t *Tool) Scaling() ScalingContext { return t.scaling }

// Invoke validates the input against the action's contract and runs it.
func (t *Tool) Invoke(ctx context.Context, raw json.RawMessage) (tools.Outcome, error) {
	in, msg := decodeInput(raw)
	if msg != "" {
		return tools.Err(tools.ErrCodeInvalidParameters, msg), nil
	}

	fields := []zap.Field{zap.String("action", string(in.Action))}
	if in.Text != nil {
		fields = append(fields, zap.String("text", *in.Text))
	}
	if in.Coordinate != nil {
		fields = append(fields, zap.Any("coordinate", in.Coordinate))
	}
	t.logger.Info("Performing action", fields...)

	action, fault := validate(in)
	if fault != nil {
		return tools.FromFault(fault), nil
	}
	return t.handlers[action.action](ctx, action)
}

// validate enforces the per-action parameter contract.
func validate(in actionInput) (validatedAction, *tools.Fault) {
	invalid := func(format string, args ...any) *tools.Fault {
		return &tools.Fault{Code: tools.ErrCodeInvalidParameters, Message: fmt.Sprintf(format, args...)}
	}

	contract, ok := contracts[in.Action]
	if !ok {
		return validatedAction{}, &tools.Fault{
			Code:    tools.ErrCodeUnknownAction,
			Message: fmt.Sprintf("Invalid action: %s.", in.Action),
		}
	}

	a := validatedAction{action: in.Action}
	switch contract {
	case needsCoordinate:
		if in.Coordinate == nil {
			return a, invalid("Coordinate is required for %s.", in.Action)
		}
		if in.Text != nil {
			return a, invalid("Text is not accepted for %s.", in.Action)
		}
		x, y, msg := parseCoordinate(in.Coordinate)
		if msg != "" {
			return a, invalid("%s", msg)
		}
		a.x, a.y = x, y
	case needsText:
		if in.Text == nil {
			return a, invalid("Text is required for %s.", in.Action)
		}
		if in.Coordinate != nil {
			return a, invalid("Coordinate is not accepted for %s.", in.Action)
		}
		a.text = *in.Text
	case needsNothing:
		if in.Text != nil {
			return a, invalid("Text is not accepted for %s.", in.Action)
		}
		if in.Coordinate != nil {
			return a, invalid("Coordinate is not accepted for %s.", in.Action)
		}
	}
	return a, nil
}

// -- Action Handlers --

func (t *Tool) handleMouseMove(_ context.Context, a validatedAction) (tools.Outcome, error) {
	x, y := t.scaling.ToReal(a.x, a.y)
	if err := offload("mouse move", func() error { return t.desktop.MoveTo(x, y) }); err != nil {
		return tools.Outcome{}, err
	}
	return okOutput(fmt.Sprintf("Mouse moved successfully to X=%d, Y=%d", x, y)), nil
}

func (t *Tool) handleLeftClickDrag(_ context.Context, a validatedAction) (tools.Outcome, error) {
	x, y := t.scaling.ToReal(a.x, a.y)
	steps := []struct {
		op string
		fn func() error
	}{
		{"mouse down", func() error { return t.desktop.MouseDown(ButtonLeft) }},
		{"mouse move", func() error { return t.desktop.MoveTo(x, y) }},
		{"mouse up", func() error { return t.desktop.MouseUp(ButtonLeft) }},
	}
	for _, step := range steps {
		if err := offload(step.op, step.fn); err != nil {
			return tools.Outcome{}, err
		}
	}
	return okOutput("Mouse drag action completed."), nil
}

func (t *Tool) handleKey(_ context.Context, a validatedAction) (tools.Outcome, error) {
	keys := NormalizeKeys(a.text)
	if err := offload("key press", func() error { return t.desktop.Hotkey(keys...) }); err != nil {
		return tools.Outcome{}, err
	}
	return okOutput(fmt.Sprintf("Key combination '%s' pressed.", a.text)), nil
}

func (t *Tool) handleType(_ context.Context, a validatedAction) (tools.Outcome, error) {
	if err := offload("type text", func() error { return t.desktop.TypeText(a.text, t.opts.TypingDelay) }); err != nil {
		return tools.Outcome{}, err
	}
	return okOutput(fmt.Sprintf("Typed text: %s", a.text)), nil
}

func (t *Tool) clickHandler(button Button, double bool, output string) actionHandler {
	return func(_ context.Context, a validatedAction) (tools.Outcome, error) {
		if err := offload(string(a.action), func() error { return t.desktop.Click(button, double) }); err != nil {
			return tools.Outcome{}, err
		}
		return okOutput(output), nil
	}
}

func (t *Tool) handleScreenshot(_ context.Context, _ validatedAction) (tools.Outcome, error) {
	var img image.Image
	err := offload("screen capture", func() (err error) {
		img, err = t.desktop.Capture()
		return err
	})
	if err != nil {
		return tools.Outcome{}, err
	}
	if img == nil || img.Bounds().Empty() {
		return tools.Errf(tools.ErrCodeExecutionFailure, "Screen capture returned no image."), nil
	}
	encoded, err := encodeScreenshot(img, t.scaling)
	if err != nil {
		return tools.Errf(tools.ErrCodeExecutionFailure, "Screenshot could not be encoded: %v", err), nil
	}
	return tools.Ok(tools.Result{Image: encoded}), nil
}

func (t *Tool) handleCursorPosition(_ context.Context, _ validatedAction) (tools.Outcome, error) {
	var x, y int
	err := offload("cursor position", func() (err error) {
		x, y, err = t.desktop.CursorPosition()
		return err
	})
	if err != nil {
		return tools.Outcome{}, err
	}
	ax, ay := t.scaling.ToAPI(x, y)
	return okOutput(fmt.Sprintf("X=%d, Y=%d", ax, ay)), nil
}

func okOutput(output string) tools.Outcome {
	return tools.Ok(tools.Result{Output: output})
}
