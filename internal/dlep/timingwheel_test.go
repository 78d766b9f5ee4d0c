package dlep

import "testing"

func TestWheel_FiresWithinWindow(t *testing.T) {
	// spec.md §8: a timer armed for duration d fires within the window
	// [floor(d/R)*R, floor(d/R)*R + R]. For d=350ms, R=100ms, the timer
	// is placed floor(350/100)=3 slots ahead of the current slot, so it
	// fires on the 3rd tick — never earlier, never later.
	w := NewWheel()
	var cell TimerCell
	fired := -1
	w.Start(&cell, 350, 0, func() {})

	for i := 1; i <= 6; i++ {
		w.Tick()
		if !cell.Armed() && fired == -1 {
			fired = i
		}
	}
	if fired != 3 {
		t.Fatalf("fired at tick %d, want 3", fired)
	}
}

func TestWheel_StopPreventsFiring(t *testing.T) {
	w := NewWheel()
	var cell TimerCell
	called := false
	w.Start(&cell, 100, 0, func() { called = true })
	w.Stop(&cell)
	for i := 0; i < 5; i++ {
		w.Tick()
	}
	if called {
		t.Fatal("stopped timer fired")
	}
}

func TestWheel_PeriodicReArms(t *testing.T) {
	w := NewWheel()
	var cell TimerCell
	count := 0
	w.Start(&cell, 100, 100, func() { count++ })
	for i := 0; i < 10; i++ {
		w.Tick()
	}
	if count != 10 {
		t.Fatalf("count = %d, want 10", count)
	}
	if !cell.Armed() {
		t.Fatal("periodic timer should remain armed after firing")
	}
}

func TestWheel_MultipleRotations(t *testing.T) {
	w := NewWheel()
	var cell TimerCell
	fired := false
	// delay spans more than one full rotation of the wheel.
	delay := uint32(WheelBuckets)*WheelResolutionMS + 500
	w.Start(&cell, delay, 0, func() { fired = true })

	ticks := int(delay/WheelResolutionMS) - 1
	for i := 0; i < ticks; i++ {
		w.Tick()
	}
	if fired {
		t.Fatal("fired too early")
	}
	w.Tick()
	w.Tick()
	if !fired {
		t.Fatal("did not fire after full delay elapsed")
	}
}

func TestWheel_StartTwiceReArmsCleanly(t *testing.T) {
	w := NewWheel()
	var cell TimerCell
	count := 0
	w.Start(&cell, 100, 0, func() { count++ })
	w.Start(&cell, 200, 0, func() { count++ })
	for i := 0; i < 10; i++ {
		w.Tick()
	}
	if count != 1 {
		t.Fatalf("count = %d, want exactly 1 fire from the second Start", count)
	}
}
