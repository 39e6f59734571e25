package cartsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/storage"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestClose_LeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	records := &mockRecords{clearErr: errors.New("offline")}
	session := Open(context.Background(), Options{
		Storage:   storage.NewMemory(),
		Records:   records,
		SyncDelay: time.Minute,
		Logger:    quietLogger(),
	})
	session.SetUserID(context.Background(), "user-1")
	session.AddItem(eggs(2))
	session.ClearCart()
	session.AddItem(beef(1))

	session.Close()

	assert.Equal(t, 1, records.clearCount())
	assert.Equal(t, 1, records.saveCount(), "the pending push is flushed on close")
	assert.False(t, session.IsSyncing())
}
