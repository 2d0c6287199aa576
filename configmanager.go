package flagdecide

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/flagdecide/go-server-sdk/util"
)

// DatafileManager polls a datafile on disk and hands its contents to
// onUpdate whenever the file's size or modification time changes.
type DatafileManager struct {
	path        string
	onUpdate    func(raw []byte) error
	modTime     time.Time
	size        int64
	pollingStop chan struct{}
	pollingDone chan struct{}
	stopOnce    sync.Once
	ticker      *time.Ticker
}

func NewDatafileManager(path string, interval time.Duration, onUpdate func(raw []byte) error) (*DatafileManager, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("datafile polling interval must be positive, got %s", interval)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat datafile %s: %w", path, err)
	}
	d := &DatafileManager{
		path:        path,
		onUpdate:    onUpdate,
		modTime:     info.ModTime(),
		size:        info.Size(),
		pollingStop: make(chan struct{}),
		pollingDone: make(chan struct{}),
		ticker:      time.NewTicker(interval),
	}

	go func() {
		defer close(d.pollingDone)
		for {
			select {
			case <-d.pollingStop:
				util.Infof("Stopping datafile polling.")
				d.ticker.Stop()
				return
			case <-d.ticker.C:
				if _, err := d.fetchDatafile(); err != nil {
					util.Warnf("Error reloading datafile: %s", err)
				}
			}
		}
	}()
	return d, nil
}

// fetchDatafile reloads the datafile if it changed since the last check.
// A rejected update is not retried until the file changes again.
func (d *DatafileManager) fetchDatafile() (changed bool, err error) {
	info, err := os.Stat(d.path)
	if err != nil {
		return false, err
	}
	if info.ModTime().Equal(d.modTime) && info.Size() == d.size {
		return false, nil
	}
	d.modTime = info.ModTime()
	d.size = info.Size()

	raw, err := os.ReadFile(d.path)
	if err != nil {
		return false, err
	}
	if err = d.onUpdate(raw); err != nil {
		return false, err
	}
	return true, nil
}

func (d *DatafileManager) Close() {
	d.stopOnce.Do(func() {
		close(d.pollingStop)
		<-d.pollingDone
	})
}
