package cli

import (
	"fmt"
	"sync"
	"time"
)

// Busy shows an animated indicator with label until the returned function
// is called. Lines printed meanwhile erase the indicator; it redraws on the
// next frame. Without animation Busy does nothing.
func (r *Renderer) Busy(label string) (stop func()) {
	if !r.animate || len(r.spinner.Frames) == 0 {
		return func() {}
	}

	quit := make(chan struct{})
	done := make(chan struct{})

	r.mu.Lock()
	r.spinning = true
	r.mu.Unlock()

	go r.spin(label, quit, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-done
		})
	}
}

func (r *Renderer) spin(label string, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := r.spinner.FPS
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		r.mu.Lock()
		fmt.Fprintf(r.w, "\r%s %s", thinkingStyle.Render(r.spinner.Frames[frame%len(r.spinner.Frames)]), tipsStyle.Render(label))
		r.mu.Unlock()

		select {
		case <-quit:
			r.mu.Lock()
			fmt.Fprint(r.w, clearLine)
			r.spinning = false
			r.mu.Unlock()
			return
		case <-ticker.C:
		}
	}
}
