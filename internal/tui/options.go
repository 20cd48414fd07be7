package tui

import "github.com/atotto/clipboard"

// BoardConfig holds board presentation toggles.
type BoardConfig struct {
	ShowDescriptions        bool
	ConfirmQuitWhileGrabbed bool
}

type Option func(*Model)

func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		ShowDescriptions:        true,
		ConfirmQuitWhileGrabbed: false,
	}
}

func WithBoardConfig(cfg BoardConfig) Option {
	return func(m *Model) {
		m.boardCfg = cfg
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithMoveObserver registers a callback invoked after each move is confirmed or rolled back.
func WithMoveObserver(observe MoveObserver) Option {
	return func(m *Model) {
		m.observeMove = observe
	}
}

func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
