package cartsync

import (
	"context"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
)

// SetUserID attaches the session to a signed-in user, or detaches it when
// userID is empty.
//
// Attaching sends the local cart to the record service's Merge and, on
// success, replaces the local cart with the merged result. On failure the
// local cart is kept and SyncError is set; later changes are still pushed.
//
// Detaching stops remote replication but keeps the cart. Calls already in
// flight are not aborted; their results are discarded.
func (s *Session) SetUserID(ctx context.Context, userID string) {
	s.mu.Lock()
	if userID == s.userID {
		s.mu.Unlock()
		return
	}
	s.epoch++
	s.push.Cancel()

	if userID == "" {
		previous := s.userID
		s.userID = ""
		s.state = StateAnonymous
		s.syncErr = ""
		s.mu.Unlock()
		s.log.WithField("user_id", previous).Info("cart detached from user")
		return
	}

	s.userID = userID
	if s.opts.Records == nil {
		s.state = StateSynced
		s.mu.Unlock()
		return
	}
	s.state = StateAttaching
	s.heldDuringAttach = false
	epoch := s.epoch
	local := s.snapshotLocked()
	s.inflight++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	merged, err := s.opts.Records.Merge(ctx, userID, local)
	cancel()

	s.mu.Lock()
	s.inflight--
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.state = StateSynced
	if err != nil {
		s.syncErr = err.Error()
		if s.heldDuringAttach && !s.closed {
			s.push.Trigger()
		}
		s.mu.Unlock()
		s.log.WithError(err).WithField("user_id", userID).Warn("cart merge failed, keeping local cart")
		return
	}
	s.syncErr = ""
	s.adoptLocked(merged)
	notify := s.changedLocked(changedItems | changedFulfillment)
	s.mu.Unlock()

	notify()
	s.log.WithField("user_id", userID).WithField("items", len(merged.Items)).Info("cart merged with remote record")
}

// Flush pushes a pending change now instead of waiting for the quiet period.
// Call it before checkout so the remote record is current.
func (s *Session) Flush(ctx context.Context) {
	if s.push.Cancel() {
		s.pushSnapshot(ctx)
	}
}

// pull adopts the remote record when the local cart is empty. It runs once at
// Open for a user who was already signed in.
func (s *Session) pull(ctx context.Context) {
	s.mu.Lock()
	if s.opts.Records == nil || s.userID == "" {
		s.mu.Unlock()
		return
	}
	userID, epoch := s.userID, s.epoch
	s.inflight++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	remote, err := s.opts.Records.Load(ctx, userID)
	cancel()

	s.mu.Lock()
	s.inflight--
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.syncErr = err.Error()
		s.mu.Unlock()
		s.log.WithError(err).WithField("user_id", userID).Warn("cart load failed")
		return
	}
	if len(remote.Items) == 0 || len(s.items) > 0 {
		s.mu.Unlock()
		return
	}
	s.adoptLocked(remote)
	notify := s.changedLocked(changedItems | changedFulfillment)
	s.mu.Unlock()

	notify()
}

// pushSnapshot writes the current cart to the remote record. Overlapping
// pushes may land out of order; the last one to arrive wins.
func (s *Session) pushSnapshot(ctx context.Context) {
	s.mu.Lock()
	if s.userID == "" || s.opts.Records == nil || s.drained {
		s.mu.Unlock()
		return
	}
	userID, epoch := s.userID, s.epoch
	snap := s.snapshotLocked()
	s.inflight++
	s.bg.Add(1)
	s.mu.Unlock()
	defer s.bg.Done()

	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	err := s.opts.Records.Save(ctx, userID, snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if epoch != s.epoch {
		return
	}
	if err != nil {
		s.syncErr = err.Error()
		s.log.WithError(err).WithField("user_id", userID).Warn("cart push failed")
		return
	}
	s.syncErr = ""
}

func (s *Session) clearRemoteLocked() {
	userID, epoch := s.userID, s.epoch
	s.inflight++
	s.bg.Add(1)

	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.CallTimeout)
		defer cancel()
		err := s.opts.Records.Clear(ctx, userID)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.inflight--
		if epoch != s.epoch {
			return
		}
		if err != nil {
			s.syncErr = err.Error()
			s.log.WithError(err).WithField("user_id", userID).Warn("remote cart clear failed")
			return
		}
		s.syncErr = ""
	}()
}

// adoptLocked replaces the local cart with a remote one.
func (s *Session) adoptLocked(remote domain.Snapshot) {
	s.items = s.mirror.repair(domain.CloneItems(remote.Items))
	s.fulfillment = remote.Fulfillment.Clone()
}
