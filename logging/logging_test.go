package logging

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestRingHookBounds(t *testing.T) {
	hook := NewRingHook(3)
	log := New(hook)
	log.SetOutput(io.Discard)

	for i := 0; i < 5; i++ {
		log.Infof("line %d", i)
	}

	entries := hook.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 retained entries, got %d", len(entries))
	}
	for i, e := range entries {
		want := fmt.Sprintf("line %d", i+2)
		if e.Message != want {
			t.Errorf("entries[%d] = %q, want %q", i, e.Message, want)
		}
	}
}

func TestRingHookCapturesLevel(t *testing.T) {
	hook := NewRingHook(10)
	log := New(hook)
	log.SetOutput(io.Discard)

	log.Warn("careful")
	entries := hook.Entries()
	if len(entries) != 1 || entries[0].Level != "warning" {
		t.Errorf("entries = %+v", entries)
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestRingHookEntriesReturnsCopy(t *testing.T) {
	hook := NewRingHook(10)
	log := New(hook)
	log.SetOutput(io.Discard)
	log.Info("original")

	entries := hook.Entries()
	entries[0].Message = "mutated"
	if hook.Entries()[0].Message != "original" {
		t.Error("Entries must return a copy")
	}
}

func TestRingHookFiresOnAllLevels(t *testing.T) {
	hook := NewRingHook(10)
	if len(hook.Levels()) != len(logrus.AllLevels) {
		t.Errorf("expected all levels, got %v", hook.Levels())
	}
}
