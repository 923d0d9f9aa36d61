package platform

import "testing"

func TestHeadless_Events(t *testing.T) {
	h := NewHeadless()
	if err := h.Startup("test", 0, 0, 640, 480); err != nil {
		t.Fatal(err)
	}

	var got [][2]uint32
	h.SetResizeCallback(func(w, hh uint32) { got = append(got, [2]uint32{w, hh}) })
	h.Resize(800, 600)
	h.Resize(0, 0)

	if !h.PumpMessages() {
		t.Fatal("PumpMessages() reported quit")
	}
	if len(got) != 2 || got[0] != [2]uint32{800, 600} || got[1] != [2]uint32{0, 0} {
		t.Fatalf("resizes = %v", got)
	}

	h.Quit()
	if h.PumpMessages() {
		t.Fatal("PumpMessages() ignored quit")
	}
	if len(got) != 2 {
		t.Fatal("resize delivered twice")
	}
}
