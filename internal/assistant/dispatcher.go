// Package assistant is the voice command dispatcher. It owns the
// Inactive -> Listening -> Awake lifecycle, spots the wake phrase, routes the
// next utterance to the command table and resets itself afterwards.
//
// All state lives on one goroutine (Run). Recognizer callbacks, timers and
// handler completions are posted to it as events. Every wake and every stop
// bumps a session token; timers and handler results carry the token they
// were started under and are dropped when it no longer matches.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"trafficaz/internal/intent"
	"trafficaz/internal/speech"
)

var (
	// ErrNotRunning is returned when Run has exited or never started.
	ErrNotRunning = errors.New("dispatcher is not running")

	// ErrInactive is returned by Wake while voice activation is off.
	ErrInactive = errors.New("voice activation is off")
)

// Messages are the fixed phrases the dispatcher speaks itself.
type Messages struct {
	Prompt           string `yaml:"prompt" json:"prompt"`
	Fallback         string `yaml:"fallback" json:"fallback"`
	MicrophoneDenied string `yaml:"microphone_denied" json:"microphone_denied"`
}

func DefaultMessages() Messages {
	return Messages{
		Prompt:           "I'm listening...",
		Fallback:         "Sorry, I didn't understand that. You can ask about traffic, weather, alerts or your route.",
		MicrophoneDenied: "I need microphone access to hear you. Please allow it in your settings.",
	}
}

type Config struct {
	WakePhrase   string
	WakeAliases  []string
	ResetDelay   time.Duration // after a command resolves
	AwakeTimeout time.Duration // with no command after the wake phrase
	RestartDelay time.Duration // after a recognizer error
	TurnTimeout  time.Duration // deadline for one command turn
	Settings     speech.Settings
	Messages     Messages
}

func DefaultConfig() Config {
	return Config{
		WakePhrase:   DefaultWakePhrase,
		ResetDelay:   2 * time.Second,
		AwakeTimeout: 10 * time.Second,
		RestartDelay: time.Second,
		TurnTimeout:  15 * time.Second,
		Settings:     speech.DefaultSettings(),
		Messages:     DefaultMessages(),
	}
}

// Classifier picks an intent for a transcript no pattern matched. It returns
// intent.Unknown when nothing fits.
//
// With a classifier configured, a transcript that matches no pattern can still
// run a handler. Without one, such a transcript only gets the fallback reply.
type Classifier interface {
	Classify(ctx context.Context, transcript string, intents []intent.Name) (intent.Name, error)
}

// Recorder stores finished command turns.
type Recorder interface {
	RecordResolution(ctx context.Context, r Resolution) error
}

type Deps struct {
	Table       *intent.Table
	Recognizer  speech.Recognizer
	Speaker     speech.Speaker
	Permissions speech.Permissions // nil grants everything
	Classifier  Classifier         // optional
	History     Recorder           // optional
	Hub         *Hub               // optional, one is created when nil
	OnWake      func(session uint64)
	Logger      *slog.Logger
}

type Dispatcher struct {
	cfg   Config
	deps  Deps
	wake  *WakeDetector
	hub   *Hub
	log   *slog.Logger
	queue chan event
	done  chan struct{}

	running atomic.Bool

	// Mirrors of loop state for readers on other goroutines.
	state    atomic.Int32
	session  atomic.Uint64
	settings atomic.Pointer[speech.Settings]

	speakMu sync.Mutex

	// Owned by the Run goroutine.
	runCtx       context.Context
	turn         *turn // command in flight, nil when none
	turnSeq      uint64
	abandoned    map[uint64]bool // turns given up on at their deadline
	prompted     <-chan struct{} // closed once the last wake prompt was spoken
	resetTimer   *time.Timer
	awakeTimer   *time.Timer
	restartTimer *time.Timer
	turnTimer    *time.Timer
	restartGen   uint64
}

// turnGrace is how long past its deadline a handler may take to return before
// the turn is abandoned.
const turnGrace = 250 * time.Millisecond

// turn is one routed command. The handler goroutine fills in the match; the
// Run loop reads it when the turn is abandoned.
type turn struct {
	id      uint64
	session uint64
	raw     string
	at      time.Time
	cancel  context.CancelFunc

	mu         sync.Mutex
	intent     intent.Name
	pattern    string
	classified bool
}

func (t *turn) matched(m intent.Match, classified bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.intent, t.pattern, t.classified = m.Entry.Intent, m.Pattern, classified
}

func (t *turn) expired(timeout time.Duration) Resolution {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Resolution{
		Session:    t.session,
		Intent:     t.intent,
		Pattern:    t.pattern,
		Transcript: t.raw,
		Classified: t.classified,
		Outcome:    OutcomeFailed,
		Err:        fmt.Errorf("command gave no answer within %s: %w", timeout, context.DeadlineExceeded),
		At:         t.at,
		Duration:   time.Since(t.at),
	}
}

func New(cfg Config, deps Deps) (*Dispatcher, error) {
	if deps.Table == nil {
		return nil, errors.New("command table is required")
	}
	if deps.Recognizer == nil {
		return nil, errors.New("recognizer is required")
	}
	if deps.Speaker == nil {
		return nil, errors.New("speaker is required")
	}
	if deps.Permissions == nil {
		deps.Permissions = speech.AllowAll{}
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(0)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = def.ResetDelay
	}
	if cfg.AwakeTimeout <= 0 {
		cfg.AwakeTimeout = def.AwakeTimeout
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = def.RestartDelay
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = def.TurnTimeout
	}

	d := &Dispatcher{
		cfg:   cfg,
		deps:  deps,
		wake:  NewWakeDetector(cfg.WakePhrase, cfg.WakeAliases...),
		hub:   deps.Hub,
		log:   deps.Logger,
		queue: make(chan event, 64),
		done:  make(chan struct{}),

		abandoned: make(map[uint64]bool),
	}
	s := cfg.Settings
	d.settings.Store(&s)
	return d, nil
}

// Run consumes the event queue until ctx is done. Voice activation is
// stopped on the way out. Run can be called once.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("dispatcher already ran")
	}
	d.runCtx = ctx
	defer close(d.done)

	d.log.Info("Dispatcher running", "wake_phrase", d.wake.Phrase())

	for {
		select {
		case <-ctx.Done():
			d.stop()
			return ctx.Err()
		case ev := <-d.queue:
			d.handle(ev)
		}
	}
}

// Start turns voice activation on. It is a no-op when already on.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.request(ctx, cmdStart)
}

// Stop turns voice activation off and silences any in-flight handler.
func (d *Dispatcher) Stop(ctx context.Context) error {
	return d.request(ctx, cmdStop)
}

// Wake acts as if the wake phrase had been heard.
func (d *Dispatcher) Wake(ctx context.Context) error {
	return d.request(ctx, cmdWake)
}

// Hear injects a transcript as if the recognizer produced it.
func (d *Dispatcher) Hear(text string, final bool) {
	d.post(heard{speech.Result{Text: text, Final: final}})
}

func (d *Dispatcher) State() State { return State(d.state.Load()) }

// Session is the current session token.
func (d *Dispatcher) Session() uint64 { return d.session.Load() }

func (d *Dispatcher) Settings() speech.Settings { return *d.settings.Load() }

// UpdateSettings replaces the voice settings whole. Later calls win.
func (d *Dispatcher) UpdateSettings(s speech.Settings) {
	d.settings.Store(&s)
}

func (d *Dispatcher) Hub() *Hub { return d.hub }

// Subscribe streams dispatcher events.
func (d *Dispatcher) Subscribe() (<-chan Event, func()) { return d.hub.Subscribe() }

func (d *Dispatcher) request(ctx context.Context, cmd command) error {
	reply := make(chan error, 1)
	select {
	case d.queue <- request{cmd: cmd, ctx: ctx, reply: reply}:
	case <-d.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-d.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) post(ev event) {
	select {
	case d.queue <- ev:
	case <-d.done:
	}
}

func (d *Dispatcher) after(delay time.Duration, ev event) *time.Timer {
	return time.AfterFunc(delay, func() { d.post(ev) })
}

func (d *Dispatcher) handle(ev event) {
	switch ev := ev.(type) {
	case request:
		ev.reply <- d.run(ev)
	case heard:
		d.hear(ev.result)
	case recognizerFailed:
		d.recognizerFailed(ev.err)
	case restartDue:
		d.restart(ev.gen)
	case resetDue:
		d.reset(ev.session, false)
	case awakeExpired:
		d.reset(ev.session, true)
	case turnExpired:
		d.expire(ev.turn)
	case resolved:
		d.resolved(ev.res, ev.turn)
	}
}

func (d *Dispatcher) run(r request) error {
	switch r.cmd {
	case cmdStart:
		return d.start(r.ctx)
	case cmdStop:
		d.stop()
		return nil
	case cmdWake:
		switch d.State() {
		case StateInactive:
			return ErrInactive
		case StateListening:
			d.awaken()
		}
		return nil
	}
	return fmt.Errorf("unknown command %d", r.cmd)
}

func (d *Dispatcher) start(ctx context.Context) error {
	if d.State() != StateInactive {
		return nil
	}

	if err := d.deps.Permissions.RequestMicrophone(ctx); err != nil {
		d.log.Warn("Microphone permission refused", "err", err)
		d.publish(Event{Type: EventError, ErrorKind: ErrorPermission, Error: err.Error()})
		go d.announce(d.cfg.Messages.MicrophoneDenied)
		return fmt.Errorf("start voice activation: %w", err)
	}

	if err := d.deps.Recognizer.Start(d.runCtx, d.onResult, d.onError); err != nil {
		return fmt.Errorf("start recognizer: %w", err)
	}

	d.setState(StateListening)
	return nil
}

func (d *Dispatcher) stop() {
	if d.State() == StateInactive {
		return
	}

	d.setState(StateInactive)
	d.session.Add(1)

	stopTimer(&d.resetTimer)
	stopTimer(&d.awakeTimer)
	stopTimer(&d.restartTimer)
	d.restartGen++

	d.endTurn()

	if err := d.deps.Recognizer.Stop(); err != nil {
		d.log.Warn("Recognizer stop failed", "err", err)
	}
}

func (d *Dispatcher) onResult(r speech.Result) { d.post(heard{r}) }
func (d *Dispatcher) onError(err error)        { d.post(recognizerFailed{err}) }

func (d *Dispatcher) hear(r speech.Result) {
	switch d.State() {
	case StateListening:
		if !d.wake.Detect(r.Text) {
			return
		}
		d.log.Debug("Wake phrase heard", "text", r.Text, "final", r.Final)
		d.awaken()
		if !r.Final {
			return
		}
		if rest := d.wake.Strip(r.Text); rest != "" {
			d.route(r.Text, rest)
		}

	case StateAwake:
		if d.turn != nil || !r.Final {
			return
		}
		rest := d.wake.Strip(r.Text)
		if rest == "" {
			return
		}
		d.route(r.Text, rest)
	}
}

func (d *Dispatcher) awaken() {
	session := d.session.Add(1)
	d.setState(StateAwake)

	stopTimer(&d.resetTimer)
	stopTimer(&d.awakeTimer)
	d.awakeTimer = d.after(d.cfg.AwakeTimeout, awakeExpired{session})

	d.publish(Event{Type: EventWake})
	if d.deps.OnWake != nil {
		d.deps.OnWake(session)
	}

	prompted := make(chan struct{})
	d.prompted = prompted
	go func() {
		defer close(prompted)
		if err := d.say(d.runCtx, session, d.cfg.Messages.Prompt); err != nil {
			d.log.Warn("Prompt failed", "err", err)
		}
	}()
}

func (d *Dispatcher) route(raw, text string) {
	stopTimer(&d.awakeTimer)

	ctx, cancel := context.WithTimeout(d.runCtx, d.cfg.TurnTimeout)
	d.turnSeq++
	t := &turn{
		id:      d.turnSeq,
		session: d.session.Load(),
		raw:     raw,
		at:      time.Now(),
		cancel:  cancel,
	}
	d.turn = t
	d.turnTimer = d.after(d.cfg.TurnTimeout+turnGrace, turnExpired{t.id})

	go d.process(ctx, t, text, d.prompted)
}

// process runs on its own goroutine and reports back with a resolved event.
// Replies wait for the wake prompt so the user hears it first.
func (d *Dispatcher) process(ctx context.Context, t *turn, text string, prompted <-chan struct{}) {
	res := Resolution{Session: t.session, Transcript: t.raw, At: t.at}
	defer func() {
		res.Duration = time.Since(res.At)
		d.post(resolved{res: res, turn: t.id})
	}()

	if prompted != nil {
		select {
		case <-prompted:
		case <-ctx.Done():
		}
	}

	reply := &responder{d: d, session: t.session}

	m, ok := d.deps.Table.Match(text)
	if !ok {
		m, ok = d.classify(ctx, text)
		res.Classified = ok
	}
	if !ok {
		res.Outcome = OutcomeNoMatch
		if err := reply.Say(ctx, d.cfg.Messages.Fallback); err != nil {
			d.log.Warn("Fallback reply failed", "err", err)
		}
		return
	}

	res.Intent = m.Entry.Intent
	res.Pattern = m.Pattern
	t.matched(m, res.Classified)

	err := invoke(ctx, m.Entry.Handler, intent.Request{
		Session:    t.session,
		Intent:     m.Entry.Intent,
		Pattern:    m.Pattern,
		Transcript: t.raw,
		Reply:      reply,
	})
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", context.DeadlineExceeded, d.cfg.TurnTimeout, err)
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return
	}
	res.Outcome = OutcomeHandled
}

func (d *Dispatcher) classify(ctx context.Context, text string) (intent.Match, bool) {
	if d.deps.Classifier == nil {
		return intent.Match{}, false
	}

	name, err := d.deps.Classifier.Classify(ctx, text, d.deps.Table.Intents())
	if err != nil {
		d.log.Warn("Classifier failed", "err", err)
		return intent.Match{}, false
	}

	e, ok := d.deps.Table.Lookup(name)
	if !ok {
		return intent.Match{}, false
	}
	d.log.Debug("Classifier picked intent", "intent", name, "text", text)
	return intent.Match{Entry: e}, true
}

func invoke(ctx context.Context, h intent.Handler, req intent.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", req.Intent, r)
		}
	}()
	return h(ctx, req)
}

func (d *Dispatcher) resolved(res Resolution, id uint64) {
	if d.abandoned[id] {
		delete(d.abandoned, id)
		d.log.Warn("Command finished after its deadline", "session", res.Session, "intent", res.Intent, "took", res.Duration)
		return
	}
	d.finish(res, id)
}

// finish logs, records and publishes res. When it closes the turn in flight
// the reset delay starts.
func (d *Dispatcher) finish(res Resolution, id uint64) {
	log := d.log.With("session", res.Session, "intent", res.Intent, "outcome", res.Outcome)
	if res.Err != nil {
		log.Error("Command failed", "err", res.Err)
		d.publish(Event{Type: EventError, ErrorKind: ErrorHandler, Intent: res.Intent, Error: res.Err.Error()})
	} else {
		log.Info("Command resolved", "took", res.Duration)
	}

	d.record(res)
	d.publish(Event{
		Type:       EventResolved,
		Intent:     res.Intent,
		Outcome:    res.Outcome,
		Transcript: res.Transcript,
	})

	if d.turn == nil || d.turn.id != id {
		return
	}
	d.endTurn()

	if res.Session != d.session.Load() || d.State() != StateAwake {
		return
	}
	stopTimer(&d.resetTimer)
	d.resetTimer = d.after(d.cfg.ResetDelay, resetDue{res.Session})
}

// expire abandons a turn whose handler ignored its deadline, so the
// dispatcher can go back to listening.
func (d *Dispatcher) expire(id uint64) {
	if d.turn == nil || d.turn.id != id {
		return
	}
	res := d.turn.expired(d.cfg.TurnTimeout)
	d.abandoned[id] = true
	d.finish(res, id)
}

func (d *Dispatcher) endTurn() {
	stopTimer(&d.turnTimer)
	if d.turn != nil {
		d.turn.cancel()
		d.turn = nil
	}
}

func (d *Dispatcher) record(res Resolution) {
	if d.deps.History == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(d.runCtx), 5*time.Second)
		defer cancel()
		if err := d.deps.History.RecordResolution(ctx, res); err != nil {
			d.log.Warn("History write failed", "err", err)
		}
	}()
}

func (d *Dispatcher) reset(session uint64, timedOut bool) {
	if session != d.session.Load() || d.State() != StateAwake || d.turn != nil {
		return
	}
	if timedOut {
		d.log.Info("No command after wake phrase", "session", session)
		d.publish(Event{Type: EventTimeout})
	}
	d.setState(StateListening)
}

func (d *Dispatcher) recognizerFailed(err error) {
	if d.State() == StateInactive {
		return
	}

	d.log.Warn("Recognizer error, restarting", "err", err, "in", d.cfg.RestartDelay)
	d.publish(Event{Type: EventError, ErrorKind: ErrorRecognition, Error: err.Error()})

	d.restartGen++
	stopTimer(&d.restartTimer)
	d.restartTimer = d.after(d.cfg.RestartDelay, restartDue{d.restartGen})
}

func (d *Dispatcher) restart(gen uint64) {
	if gen != d.restartGen || d.State() == StateInactive {
		return
	}

	if err := d.deps.Recognizer.Stop(); err != nil {
		d.log.Debug("Recognizer stop before restart", "err", err)
	}
	if err := d.deps.Recognizer.Start(d.runCtx, d.onResult, d.onError); err != nil {
		d.recognizerFailed(fmt.Errorf("restart recognizer: %w", err))
		return
	}
	d.log.Info("Recognizer restarted")
}

func (d *Dispatcher) setState(s State) {
	old := State(d.state.Swap(int32(s)))
	if old == s {
		return
	}
	d.log.Info("State changed", "from", old, "to", s, "session", d.session.Load())
	d.publish(Event{Type: EventState, State: s.String()})
}

func (d *Dispatcher) publish(ev Event) {
	if ev.Session == 0 {
		ev.Session = d.session.Load()
	}
	d.hub.Publish(ev)
}

// current reports whether replies for session may still be voiced.
func (d *Dispatcher) current(session uint64) bool {
	return d.State() != StateInactive && d.session.Load() == session
}

func (d *Dispatcher) say(ctx context.Context, session uint64, text string) error {
	if text == "" || !d.current(session) {
		return nil
	}

	d.speakMu.Lock()
	defer d.speakMu.Unlock()

	// The session may have ended while waiting for the speaker.
	if !d.current(session) {
		return nil
	}
	if err := d.deps.Speaker.Speak(ctx, text, d.Settings()); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

// announce speaks outside any session, used while inactive.
func (d *Dispatcher) announce(text string) {
	if text == "" {
		return
	}
	d.speakMu.Lock()
	defer d.speakMu.Unlock()

	if err := d.deps.Speaker.Speak(context.WithoutCancel(d.runCtx), text, d.Settings()); err != nil {
		d.log.Warn("Announcement failed", "err", err)
	}
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
