package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	t.Run("Errorf", func(t *testing.T) {
		err := Errorf(4, "unexpected character '%c'", ')')
		if err.Error() != "unexpected character ')' (at index 4)" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("Shift", func(t *testing.T) {
		err := Errorf(2, "bad").Shift(10)
		if err.Index != 12 {
			t.Errorf("expected index 12, got %d", err.Index)
		}
		var nilErr *Error
		if nilErr.Shift(3) != nil {
			t.Error("expected nil shift to stay nil")
		}
	})

	t.Run("Incomplete", func(t *testing.T) {
		if got := Incomplete(5); got.Index != 4 || got.Message != MsgIncomplete {
			t.Errorf("unexpected incomplete error %+v", got)
		}
		if got := Incomplete(0); got.Index != 0 {
			t.Errorf("expected empty input to report index 0, got %d", got.Index)
		}
	})
}

func TestFromError(t *testing.T) {
	if d := FromError(nil); !d.Success || d.Index != -1 {
		t.Errorf("expected success diagnostic, got %+v", d)
	}

	wrapped := fmt.Errorf("context: %w", Errorf(7, "boom"))
	d := FromError(wrapped)
	if d.Success || d.Message != "boom" || d.Index != 7 {
		t.Errorf("unexpected diagnostic %+v", d)
	}

	other := FromError(errors.New("plain"))
	if other.Success || other.Index != 0 {
		t.Errorf("unexpected diagnostic for plain error %+v", other)
	}

	if err := d.Err(); err == nil || err.Error() != "boom (at index 7)" {
		t.Errorf("unexpected round-trip error %v", err)
	}
	if OK().Err() != nil {
		t.Error("expected nil error for success")
	}
}
