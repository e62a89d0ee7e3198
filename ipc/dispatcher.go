package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fahmaliyi/passvault/logging"
	"github.com/fahmaliyi/passvault/vault"
)

type handlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher routes named commands to a vault session. Commands that take
// a master passphrase share one token bucket.
type Dispatcher struct {
	session  *vault.Session
	limiter  *rate.Limiter
	log      logrus.FieldLogger
	genLen   int
	genSyms  bool
	handlers map[string]handlerFunc
}

type Option func(*Dispatcher)

// WithUnlockRate limits passphrase attempts to perSecond with burst.
func WithUnlockRate(perSecond float64, burst int) Option {
	return func(d *Dispatcher) { d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithGeneratorDefaults sets what generate_password uses when args omit them.
func WithGeneratorDefaults(length int, symbols bool) Option {
	return func(d *Dispatcher) {
		d.genLen = length
		d.genSyms = symbols
	}
}

func NewDispatcher(s *vault.Session, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		session: s,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		log:     logging.Discard(),
		genLen:  20,
		genSyms: true,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.handlers = map[string]handlerFunc{
		"vault_exists":           d.vaultExists,
		"is_vault_unlocked":      d.isUnlocked,
		"create_vault":           d.createVault,
		"unlock_vault":           d.unlockVault,
		"lock_vault":             d.lockVault,
		"delete_vault":           d.deleteVault,
		"get_passwords":          d.getPasswords,
		"add_password":           d.addPassword,
		"update_password":        d.updatePassword,
		"delete_password":        d.deletePassword,
		"search_passwords":       d.searchPasswords,
		"get_passwords_for_url":  d.passwordsForURL,
		"change_master_password": d.changeMaster,
		"generate_password":      d.generatePassword,
		"get_remaining_attempts": d.remainingAttempts,
	}
	return d
}

// Commands lists the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs one command and returns its result data.
func (d *Dispatcher) Invoke(ctx context.Context, command string, args json.RawMessage) (any, error) {
	h, ok := d.handlers[command]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(ctx, args)
}

// Handle wraps Invoke in the response envelope.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	data, err := d.Invoke(ctx, req.Command, req.Args)
	if err != nil {
		resp := Response{ID: req.ID, Error: toError(err)}
		d.log.WithFields(logrus.Fields{
			"command": req.Command,
			"code":    resp.Error.Code,
		}).Debug("ipc: command failed")
		return resp
	}

	d.log.WithField("command", req.Command).Debug("ipc: command ok")
	return Response{ID: req.ID, OK: true, Data: data}
}

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// throttle rejects passphrase attempts beyond the configured rate.
func (d *Dispatcher) throttle() error {
	if !d.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

func (d *Dispatcher) vaultExists(context.Context, json.RawMessage) (any, error) {
	return d.session.Exists(), nil
}

func (d *Dispatcher) isUnlocked(context.Context, json.RawMessage) (any, error) {
	return d.session.IsUnlocked(), nil
}

func (d *Dispatcher) createVault(_ context.Context, raw json.RawMessage) (any, error) {
	var args passwordArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return true, d.session.Create(args.MasterPassword)
}

func (d *Dispatcher) unlockVault(_ context.Context, raw json.RawMessage) (any, error) {
	var args passwordArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if err := d.throttle(); err != nil {
		return nil, err
	}
	return true, d.session.Unlock(args.MasterPassword)
}

func (d *Dispatcher) lockVault(context.Context, json.RawMessage) (any, error) {
	d.session.Lock()
	return true, nil
}

func (d *Dispatcher) deleteVault(context.Context, json.RawMessage) (any, error) {
	return true, d.session.Delete()
}

func (d *Dispatcher) getPasswords(context.Context, json.RawMessage) (any, error) {
	return d.session.List()
}

func (d *Dispatcher) addPassword(_ context.Context, raw json.RawMessage) (any, error) {
	var args addArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return d.session.Add(args.URL, args.Username, args.Password)
}

func (d *Dispatcher) updatePassword(_ context.Context, raw json.RawMessage) (any, error) {
	var args updateArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if args.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrBadRequest)
	}
	return d.session.Update(args.ID, vault.EntryUpdate{
		URL:      args.URL,
		Username: args.Username,
		Password: args.Password,
	})
}

func (d *Dispatcher) deletePassword(_ context.Context, raw json.RawMessage) (any, error) {
	var args idArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return d.session.DeleteEntry(args.ID)
}

func (d *Dispatcher) searchPasswords(_ context.Context, raw json.RawMessage) (any, error) {
	var args queryArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return d.session.Search(args.Query)
}

func (d *Dispatcher) passwordsForURL(_ context.Context, raw json.RawMessage) (any, error) {
	var args urlArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	return d.session.FindForHost(args.URL)
}

func (d *Dispatcher) changeMaster(_ context.Context, raw json.RawMessage) (any, error) {
	var args changeArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if err := d.throttle(); err != nil {
		return nil, err
	}
	return true, d.session.ChangeMasterPassword(args.OldPassword, args.NewPassword)
}

func (d *Dispatcher) generatePassword(_ context.Context, raw json.RawMessage) (any, error) {
	args := generateArgs{}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	length, symbols := d.genLen, d.genSyms
	if args.Length != nil {
		length = *args.Length
	}
	if args.IncludeSymbols != nil {
		symbols = *args.IncludeSymbols
	}
	return vault.GeneratePassword(length, symbols)
}

func (d *Dispatcher) remainingAttempts(context.Context, json.RawMessage) (any, error) {
	return d.session.RemainingAttempts()
}
