package server

import (
	"bytes"
	"context"
	"errors"

	"github.com/BinaryCat17/RapidServer/internal/hub"
	"github.com/BinaryCat17/RapidServer/internal/logger"
	"github.com/BinaryCat17/RapidServer/internal/metrics"
	"github.com/BinaryCat17/RapidServer/pkg/controlplane/models"
	"github.com/BinaryCat17/RapidServer/pkg/controlplane/store"
)

// Request verbs of the line protocol.
const (
	verbNewUser        = "new_user"
	verbSignIn         = "sign_in"
	verbSignOut        = "sign_out"
	verbNewFarm        = "new_farm"
	verbConnectFarm    = "connect_farm"
	verbDisconnectFarm = "disconnect_farm"
	verbSetTemperature = "set_temperature"
	verbSetHumidity    = "set_humidity"
	verbSetLight       = "set_light_interval"
	verbSetPump        = "set_pump_interval"
)

// Reply reasons.
const (
	reasonAlreadySignedIn  = "Already signed in!"
	reasonNotSignedIn      = "Not signed in!"
	reasonBadCredentials   = "Incorrect login or password"
	reasonUserExists       = "User already exist!"
	reasonFarmExists       = "Farm already exist!"
	reasonFarmAttached     = "Farm already connected!"
	reasonFarmNotAttached  = "Farm is not connected!"
	reasonNotFarm          = "It is not farm!"
	reasonForeignFarm      = "It is not your farm!"
	reasonOwnerHasFarm     = "You already have a farm!"
	reasonInternal         = "Internal error"
)

// handlerFunc processes one parsed command and returns the single reply
// frame for it.
type handlerFunc func(ctx context.Context, c *Conn, t *tokens) []byte

// Core is the session-and-routing core: it owns the per-connection state
// transitions, enforces auth preconditions, mutates the identity store, and
// bridges frames between client and farm sockets through the broker.
type Core struct {
	store    store.Store
	broker   *hub.Broker
	handlers map[string]handlerFunc
}

// NewCore creates the core over an identity store and a broker.
func NewCore(st store.Store, broker *hub.Broker) *Core {
	co := &Core{
		store:  st,
		broker: broker,
	}
	co.handlers = map[string]handlerFunc{
		verbNewUser:        co.newUser,
		verbSignIn:         co.signIn,
		verbSignOut:        co.signOut,
		verbNewFarm:        co.newFarm,
		verbConnectFarm:    co.connectFarm,
		verbDisconnectFarm: co.disconnectFarm,
		verbSetTemperature: co.setTemperature,
		verbSetHumidity:    co.setHumidity,
		verbSetLight:       co.setLightInterval,
		verbSetPump:        co.setPumpInterval,
	}
	return co
}

// HandleOpen is invoked by the transport when a socket opens.
func (co *Core) HandleOpen(c *Conn) {
	metrics.OpenConnections.Inc()
	logger.Debug("connection opened", "conn", c.ID, "remote", c.remoteAddr)
}

// HandleMessage processes one inbound text frame. Frames from a signed-in
// farm user are telemetry and are relayed to the owning client without verb
// parsing; everything else goes through the command dispatcher. Every frame
// yields exactly one reply, except the telemetry path which yields exactly
// one relayed message.
func (co *Core) HandleMessage(ctx context.Context, c *Conn, frame []byte) {
	if c.SignedIn() && c.isFarm {
		co.relayTelemetry(ctx, c, frame)
		return
	}

	t := tokenize(frame)
	verb := t.verb()
	handler, ok := co.handlers[verb]
	if !ok {
		metrics.CommandsTotal.WithLabelValues("unknown", "error").Inc()
		c.queueOut(parseErrReply(verb))
		return
	}

	// new_user and new_farm reply with the verb of their cascaded
	// operation, so the outcome is read off the reply itself.
	reply := handler(ctx, c, t)
	outcome := "error"
	if bytes.Contains(reply, []byte(" success")) {
		outcome = "success"
	}
	metrics.CommandsTotal.WithLabelValues(verb, outcome).Inc()
	c.queueOut(reply)
}

// HandleClose is invoked by the transport when a socket closes. It runs the
// sign-out cascade with store errors logged and swallowed: teardown must
// never fail.
func (co *Core) HandleClose(ctx context.Context, c *Conn) {
	metrics.OpenConnections.Dec()

	if c.FarmAttached() {
		if err := co.releaseFarm(ctx, c); err != nil {
			logger.Warn("failed to release farm session on close",
				"conn", c.ID, "error", err)
		}
	}
	if c.SignedIn() {
		if err := co.store.DeleteSession(ctx, c.sessionID); err != nil &&
			!errors.Is(err, models.ErrSessionNotFound) {
			logger.Warn("failed to delete session on close",
				"conn", c.ID, "session", c.sessionID, "error", err)
		}
		c.unbind()
	}
	co.broker.Drop(c)
	logger.Debug("connection closed", "conn", c.ID)
}

// ============================================
// ACCOUNT VERBS
// ============================================

func (co *Core) newUser(ctx context.Context, c *Conn, t *tokens) []byte {
	login, ok1 := t.nextString()
	password, ok2 := t.nextString()
	if !ok1 || !ok2 || !t.done() {
		return parseErrReply(verbNewUser)
	}
	if c.SignedIn() {
		return errReply(verbNewUser, reasonAlreadySignedIn)
	}

	if _, err := co.store.CreateUser(ctx, login, password); err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			return errReply(verbNewUser, reasonUserExists)
		}
		logger.Error("create user failed", "conn", c.ID, "login", login, "error", err)
		return errReply(verbNewUser, reasonInternal)
	}

	// A fresh account signs in immediately; the reply is the sign_in reply.
	return co.establishSession(ctx, c, login, password)
}

func (co *Core) signIn(ctx context.Context, c *Conn, t *tokens) []byte {
	login, ok1 := t.nextString()
	password, ok2 := t.nextString()
	if !ok1 || !ok2 || !t.done() {
		return parseErrReply(verbSignIn)
	}
	if c.SignedIn() {
		return errReply(verbSignIn, reasonAlreadySignedIn)
	}
	return co.establishSession(ctx, c, login, password)
}

// establishSession checks credentials, issues a session, subscribes the
// socket to its topic, and binds the connection. Farm users land on the
// arduino topic family, humans on the client family.
func (co *Core) establishSession(ctx context.Context, c *Conn, login, password string) []byte {
	user, err := co.store.ValidateCredentials(ctx, login, password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			return errReply(verbSignIn, reasonBadCredentials)
		}
		logger.Error("credential check failed", "conn", c.ID, "login", login, "error", err)
		return errReply(verbSignIn, reasonInternal)
	}

	sessionID, err := co.store.CreateSession(ctx, user.ID)
	if err != nil {
		logger.Error("create session failed", "conn", c.ID, "user", user.ID, "error", err)
		return errReply(verbSignIn, reasonInternal)
	}

	isFarm := user.HasGroup(models.GroupFarm)
	topic := hub.ClientTopic(sessionID)
	if isFarm {
		topic = hub.FarmTopic(sessionID)
	}
	co.broker.Subscribe(topic, c)
	c.bind(user.ID, sessionID, isFarm, topic)

	logger.Info("signed in", "conn", c.ID, "user", user.Name, "session", sessionID, "farm", isFarm)
	return okPayloadReply(verbSignIn, sessionID)
}

func (co *Core) signOut(ctx context.Context, c *Conn, t *tokens) []byte {
	if !t.done() {
		return parseErrReply(verbSignOut)
	}
	if !c.SignedIn() {
		return errReply(verbSignOut, reasonNotSignedIn)
	}

	if c.FarmAttached() {
		if err := co.releaseFarm(ctx, c); err != nil {
			logger.Error("farm detach during sign_out failed", "conn", c.ID, "error", err)
			return errReply(verbSignOut, reasonInternal)
		}
	}

	co.broker.Unsubscribe(c.ownTopic, c)
	if err := co.store.DeleteSession(ctx, c.sessionID); err != nil &&
		!errors.Is(err, models.ErrSessionNotFound) {
		logger.Error("delete session failed", "conn", c.ID, "session", c.sessionID, "error", err)
		return errReply(verbSignOut, reasonInternal)
	}

	logger.Info("signed out", "conn", c.ID, "session", c.sessionID)
	c.unbind()
	return okReply(verbSignOut)
}

// ============================================
// FARM VERBS
// ============================================

func (co *Core) newFarm(ctx context.Context, c *Conn, t *tokens) []byte {
	farmID, ok1 := t.nextString()
	password, ok2 := t.nextString()
	if !ok1 || !ok2 || !t.done() {
		return parseErrReply(verbNewFarm)
	}
	if !c.SignedIn() {
		return errReply(verbNewFarm, reasonNotSignedIn)
	}
	if c.FarmAttached() {
		return errReply(verbNewFarm, reasonFarmAttached)
	}

	if _, err := co.store.CreateFarm(ctx, c.userID, farmID, password); err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicateUser):
			return errReply(verbNewFarm, reasonFarmExists)
		case errors.Is(err, models.ErrDuplicateFarm):
			return errReply(verbNewFarm, reasonOwnerHasFarm)
		default:
			logger.Error("create farm failed", "conn", c.ID, "farm", farmID, "error", err)
			return errReply(verbNewFarm, reasonInternal)
		}
	}

	// A fresh farm attaches immediately; the reply is the connect_farm reply.
	return co.attachFarmSession(ctx, c, farmID, password)
}

func (co *Core) connectFarm(ctx context.Context, c *Conn, t *tokens) []byte {
	farmID, ok1 := t.nextString()
	password, ok2 := t.nextString()
	if !ok1 || !ok2 || !t.done() {
		return parseErrReply(verbConnectFarm)
	}
	if !c.SignedIn() {
		return errReply(verbConnectFarm, reasonNotSignedIn)
	}
	if c.FarmAttached() {
		return errReply(verbConnectFarm, reasonFarmAttached)
	}
	return co.attachFarmSession(ctx, c, farmID, password)
}

// attachFarmSession authenticates the farm device's credentials, verifies
// the farm group and ownership, issues the farm session, and attaches it to
// the connection.
func (co *Core) attachFarmSession(ctx context.Context, c *Conn, farmID, password string) []byte {
	user, err := co.store.ValidateCredentials(ctx, models.FarmUsername(farmID), password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			return errReply(verbConnectFarm, reasonBadCredentials)
		}
		logger.Error("farm credential check failed", "conn", c.ID, "farm", farmID, "error", err)
		return errReply(verbConnectFarm, reasonInternal)
	}

	if !user.HasGroup(models.GroupFarm) {
		return errReply(verbConnectFarm, reasonNotFarm)
	}

	// Ownership: the farm must be linked to this user. An unowned farm
	// user is adopted on first connect; a farm owned by someone else is
	// never attachable across the tenant boundary.
	farm, err := co.store.FarmOwner(ctx, user.ID)
	switch {
	case errors.Is(err, models.ErrFarmNotFound):
		if err := co.store.LinkFarm(ctx, c.userID, user.ID); err != nil {
			if errors.Is(err, models.ErrDuplicateFarm) {
				return errReply(verbConnectFarm, reasonOwnerHasFarm)
			}
			logger.Error("link farm failed", "conn", c.ID, "farm", farmID, "error", err)
			return errReply(verbConnectFarm, reasonInternal)
		}
	case err != nil:
		logger.Error("farm owner lookup failed", "conn", c.ID, "farm", farmID, "error", err)
		return errReply(verbConnectFarm, reasonInternal)
	case farm.UserID != c.userID:
		return errReply(verbConnectFarm, reasonForeignFarm)
	}

	sessionID, err := co.store.CreateSession(ctx, user.ID)
	if err != nil {
		logger.Error("create farm session failed", "conn", c.ID, "farm", farmID, "error", err)
		return errReply(verbConnectFarm, reasonInternal)
	}

	c.attachFarm(sessionID)
	logger.Info("farm attached", "conn", c.ID, "farm", farmID, "session", sessionID)
	return okPayloadReply(verbConnectFarm, sessionID)
}

func (co *Core) disconnectFarm(ctx context.Context, c *Conn, t *tokens) []byte {
	if !t.done() {
		return parseErrReply(verbDisconnectFarm)
	}
	if !c.SignedIn() {
		return errReply(verbDisconnectFarm, reasonNotSignedIn)
	}
	if !c.FarmAttached() {
		return errReply(verbDisconnectFarm, reasonFarmNotAttached)
	}

	if err := co.releaseFarm(ctx, c); err != nil {
		logger.Error("farm detach failed", "conn", c.ID, "error", err)
		return errReply(verbDisconnectFarm, reasonInternal)
	}
	return okReply(verbDisconnectFarm)
}

// releaseFarm deletes the attached farm session and clears the attachment.
// A session already gone counts as released.
func (co *Core) releaseFarm(ctx context.Context, c *Conn) error {
	err := co.store.DeleteSession(ctx, c.farmSessionID)
	if err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		return err
	}
	c.detachFarm()
	return nil
}

// ============================================
// DEVICE CONTROL VERBS
// ============================================

func (co *Core) setTemperature(ctx context.Context, c *Conn, t *tokens) []byte {
	if _, ok := t.nextFloat(); !ok || !t.done() {
		return parseErrReply(verbSetTemperature)
	}
	return co.forwardToFarm(ctx, c, verbSetTemperature, t.text())
}

func (co *Core) setHumidity(ctx context.Context, c *Conn, t *tokens) []byte {
	if _, ok := t.nextInt(); !ok || !t.done() {
		return parseErrReply(verbSetHumidity)
	}
	return co.forwardToFarm(ctx, c, verbSetHumidity, t.text())
}

func (co *Core) setLightInterval(ctx context.Context, c *Conn, t *tokens) []byte {
	_, ok1 := t.nextInt()
	_, ok2 := t.nextInt()
	if !ok1 || !ok2 || !t.done() {
		return parseErrReply(verbSetLight)
	}
	return co.forwardToFarm(ctx, c, verbSetLight, t.text())
}

func (co *Core) setPumpInterval(ctx context.Context, c *Conn, t *tokens) []byte {
	_, ok1 := t.nextInt()
	_, ok2 := t.nextInt()
	if !ok1 || !ok2 || !t.done() {
		return parseErrReply(verbSetPump)
	}
	return co.forwardToFarm(ctx, c, verbSetPump, t.text())
}

// forwardToFarm publishes a device-control command to the attached farm.
// The target is resolved through the store at publish time: the command
// goes to the arduino topic of every live session of the farm user, so a
// device that re-signed-in under a new session keeps receiving commands.
// Delivery is best-effort; an offline farm drops the frame.
func (co *Core) forwardToFarm(ctx context.Context, c *Conn, verb, command string) []byte {
	if !c.SignedIn() {
		return errReply(verb, reasonNotSignedIn)
	}
	if !c.FarmAttached() {
		return errReply(verb, reasonFarmNotAttached)
	}

	farmUserID, err := co.store.SessionUser(ctx, c.farmSessionID)
	if err != nil {
		logger.Error("farm session lookup failed", "conn", c.ID, "session", c.farmSessionID, "error", err)
		return errReply(verb, reasonInternal)
	}
	sessions, err := co.store.UserSessions(ctx, farmUserID)
	if err != nil {
		logger.Error("farm sessions lookup failed", "conn", c.ID, "user", farmUserID, "error", err)
		return errReply(verb, reasonInternal)
	}

	delivered := 0
	for _, s := range sessions {
		delivered += co.broker.Publish(hub.FarmTopic(s.ID), []byte(command))
	}
	if delivered == 0 {
		metrics.DroppedFramesTotal.WithLabelValues("no_subscriber").Inc()
		logger.Debug("no farm socket for command", "conn", c.ID, "verb", verb)
	} else {
		metrics.RelayedFramesTotal.WithLabelValues("to_farm").Add(float64(delivered))
	}
	return okReply(verb)
}

// relayTelemetry forwards a frame from a farm socket to its owning client,
// verbatim. The owner is resolved from the farm table and the frame goes to
// the client topic of every live owner session.
func (co *Core) relayTelemetry(ctx context.Context, c *Conn, frame []byte) {
	farm, err := co.store.FarmOwner(ctx, c.userID)
	if err != nil {
		metrics.DroppedFramesTotal.WithLabelValues("no_owner").Inc()
		logger.Warn("telemetry from unowned farm dropped", "conn", c.ID, "user", c.userID, "error", err)
		return
	}

	sessions, err := co.store.UserSessions(ctx, farm.UserID)
	if err != nil {
		metrics.DroppedFramesTotal.WithLabelValues("no_owner").Inc()
		logger.Error("owner sessions lookup failed", "conn", c.ID, "owner", farm.UserID, "error", err)
		return
	}

	delivered := 0
	for _, s := range sessions {
		delivered += co.broker.Publish(hub.ClientTopic(s.ID), frame)
	}
	if delivered == 0 {
		metrics.DroppedFramesTotal.WithLabelValues("no_subscriber").Inc()
	} else {
		metrics.RelayedFramesTotal.WithLabelValues("to_client").Add(float64(delivered))
	}
}
