package flows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/tokengate/jwt"
	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	errNotReady    = errors.New("not ready")
	errMissing     = errors.New("missing")
	errTaken       = errors.New("taken")
	errUnavailable = errors.New("unavailable")
	errInvalid     = errors.New("invalid credentials")
	errNoToken     = errors.New("no token")
	errForbidden   = errors.New("forbidden")
	errNotFound    = errors.New("not found")
	errDuplicate   = errors.New("duplicate")
)

type recordedEvent struct {
	eventType string
	success   bool
	username  string
	err       error
	metadata  map[string]string
}

type recorder struct {
	events  []recordedEvent
	metrics map[int]int
}

func newRecorder() *recorder {
	return &recorder{metrics: map[int]int{}}
}

func (r *recorder) audit(_ context.Context, eventType string, success bool, username string, err error, meta func() map[string]string) {
	ev := recordedEvent{eventType: eventType, success: success, username: username, err: err}
	if meta != nil {
		ev.metadata = meta()
	}
	r.events = append(r.events, ev)
}

func (r *recorder) inc(id int) { r.metrics[id]++ }

func (r *recorder) last(t *testing.T) recordedEvent {
	t.Helper()
	if len(r.events) == 0 {
		t.Fatal("expected an audit event")
	}
	return r.events[len(r.events)-1]
}

func registerDeps(rec *recorder, users map[string]UserRecord) RegisterDeps {
	return RegisterDeps{
		Now: func() time.Time { return time.Unix(100, 0) },
		ValidateUsername: func(u string) error {
			if len(u) < 3 {
				return fmt.Errorf("username too short")
			}
			return nil
		},
		ValidatePassword: func(p string) error {
			if len(p) < 8 {
				return fmt.Errorf("password too short")
			}
			return nil
		},
		HashPassword: func(p string) (string, error) { return "hash:" + p, nil },
		InsertUser: func(_ context.Context, r UserRecord) error {
			if _, ok := users[r.Username]; ok {
				return errDuplicate
			}
			users[r.Username] = r
			return nil
		},
		IsDuplicate: func(err error) bool { return errors.Is(err, errDuplicate) },
		MetricInc:   rec.inc,
		EmitAudit:   rec.audit,
		Metrics:     RegisterMetrics{Success: 1, Duplicate: 2, Invalid: 3},
		Events:      RegisterEvents{Success: "register_success", Failure: "register_failure"},
		Errors: RegisterErrors{
			EngineNotReady:   errNotReady,
			MissingFields:    errMissing,
			UsernameTaken:    errTaken,
			StoreUnavailable: errUnavailable,
		},
	}
}

func TestRunRegister(t *testing.T) {
	rec := newRecorder()
	users := map[string]UserRecord{}
	deps := registerDeps(rec, users)
	ctx := context.Background()

	got, err := RunRegister(ctx, "alice", "password1", deps)
	if err != nil || got != "alice" {
		t.Fatalf("register: %q %v", got, err)
	}
	if users["alice"].PasswordHash != "hash:password1" || !users["alice"].CreatedAt.Equal(time.Unix(100, 0)) {
		t.Fatalf("unexpected stored record: %+v", users["alice"])
	}
	if ev := rec.last(t); ev.eventType != "register_success" || !ev.success {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if _, err := RunRegister(ctx, "alice", "password2", deps); !errors.Is(err, errTaken) {
		t.Fatalf("expected taken, got %v", err)
	}
	if ev := rec.last(t); ev.metadata["reason"] != "duplicate_username" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if _, err := RunRegister(ctx, "", "password1", deps); !errors.Is(err, errMissing) {
		t.Fatalf("expected missing, got %v", err)
	}
	if _, err := RunRegister(ctx, "ab", "x", deps); err == nil || err.Error() != "username too short" {
		t.Fatalf("username rule must run before password rule, got %v", err)
	}
	if _, err := RunRegister(ctx, "bob", "short", deps); err == nil || err.Error() != "password too short" {
		t.Fatalf("expected password rule, got %v", err)
	}

	if rec.metrics[1] != 1 || rec.metrics[2] != 1 || rec.metrics[3] != 3 {
		t.Fatalf("unexpected metrics: %v", rec.metrics)
	}
}

func TestRunRegisterStoreFailure(t *testing.T) {
	rec := newRecorder()
	deps := registerDeps(rec, map[string]UserRecord{})
	deps.InsertUser = func(context.Context, UserRecord) error { return errors.New("boom") }

	if _, err := RunRegister(context.Background(), "carol", "password1", deps); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRunRegisterNotReady(t *testing.T) {
	deps := registerDeps(newRecorder(), map[string]UserRecord{})
	deps.HashPassword = nil
	if _, err := RunRegister(context.Background(), "alice", "password1", deps); !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func loginDeps(rec *recorder, verified *[]string) LoginDeps {
	return LoginDeps{
		GetUser: func(_ context.Context, u string) (UserRecord, error) {
			if u != "alice" {
				return UserRecord{}, errNotFound
			}
			return UserRecord{Username: "alice", PasswordHash: "stored"}, nil
		},
		IsNotFound: func(err error) bool { return errors.Is(err, errNotFound) },
		VerifyPassword: func(p, h string) (bool, error) {
			*verified = append(*verified, h)
			return h == "stored" && p == "right", nil
		},
		IssueToken: func(u string) (string, time.Time, time.Time, error) {
			return "tok-" + u, time.Unix(1, 0), time.Unix(3601, 0), nil
		},
		DummyHash: "dummy",
		MetricInc: rec.inc,
		EmitAudit: rec.audit,
		Metrics:   LoginMetrics{Success: 1, Failure: 2},
		Events:    LoginEvents{Success: "login_success", Failure: "login_failure"},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			MissingFields:      errMissing,
			InvalidCredentials: errInvalid,
			StoreUnavailable:   errUnavailable,
		},
	}
}

func TestRunLogin(t *testing.T) {
	rec := newRecorder()
	var verified []string
	deps := loginDeps(rec, &verified)
	ctx := context.Background()

	res, err := RunLogin(ctx, "alice", "right", deps)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "tok-alice" || res.Username != "alice" || res.ExpiresAt.Sub(res.IssuedAt) != time.Hour {
		t.Fatalf("unexpected result: %+v", res)
	}

	_, wrongErr := RunLogin(ctx, "alice", "wrong", deps)
	_, unknownErr := RunLogin(ctx, "mallory", "right", deps)
	if !errors.Is(wrongErr, errInvalid) || !errors.Is(unknownErr, errInvalid) {
		t.Fatalf("expected identical invalid credentials errors, got %v / %v", wrongErr, unknownErr)
	}
	if wrongErr.Error() != unknownErr.Error() {
		t.Fatal("wrong password and unknown user must be indistinguishable")
	}
	if verified[len(verified)-1] != "dummy" {
		t.Fatal("expected dummy hash verification for unknown user")
	}
	if ev := rec.last(t); ev.metadata["reason"] != "user_not_found" || ev.success {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if _, err := RunLogin(ctx, "alice", "", deps); !errors.Is(err, errMissing) {
		t.Fatalf("expected missing, got %v", err)
	}
	if rec.metrics[1] != 1 || rec.metrics[2] != 3 {
		t.Fatalf("unexpected metrics: %v", rec.metrics)
	}
}

func TestRunLoginStoreFailure(t *testing.T) {
	rec := newRecorder()
	var verified []string
	deps := loginDeps(rec, &verified)
	deps.GetUser = func(context.Context, string) (UserRecord, error) { return UserRecord{}, errors.New("down") }

	if _, err := RunLogin(context.Background(), "alice", "right", deps); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRunLoginUnreadableHash(t *testing.T) {
	rec := newRecorder()
	var verified []string
	deps := loginDeps(rec, &verified)
	deps.VerifyPassword = func(string, string) (bool, error) { return false, errors.New("bad hash") }

	if _, err := RunLogin(context.Background(), "alice", "right", deps); !errors.Is(err, errInvalid) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic abc", "", false},
		{"Bearer abc def", "", false},
		{"Bearer  abc", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Fatalf("header %q: got (%q, %v) want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

func TestRunAuthorize(t *testing.T) {
	rec := newRecorder()
	var observed int
	deps := AuthorizeDeps{
		VerifyToken: func(tok string) (*jwt.Claims, error) {
			switch tok {
			case "good":
				return &jwt.Claims{Username: "alice", RegisteredClaims: gjwt.RegisteredClaims{
					IssuedAt:  gjwt.NewNumericDate(time.Unix(10, 0)),
					ExpiresAt: gjwt.NewNumericDate(time.Unix(3610, 0)),
				}}, nil
			case "old":
				return nil, jwt.ErrExpired
			case "bent":
				return nil, jwt.ErrTampered
			default:
				return nil, jwt.ErrMalformed
			}
		},
		MetricInc:      rec.inc,
		ObserveLatency: func(int, time.Duration) { observed++ },
		EmitAudit:      rec.audit,
		Metrics:        AuthorizeMetrics{Success: 1, NoToken: 2, Forbidden: 3, Latency: 4},
		Events:         AuthorizeEvents{Success: "authorize_success", Failure: "authorize_failure"},
		Errors:         AuthorizeErrors{EngineNotReady: errNotReady, NoToken: errNoToken, Forbidden: errForbidden},
	}
	ctx := context.Background()

	res, err := RunAuthorize(ctx, "Bearer good", deps)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if res.Username != "alice" || !res.ExpiresAt.Equal(time.Unix(3610, 0)) {
		t.Fatalf("unexpected identity: %+v", res)
	}
	if ev := rec.last(t); ev.eventType != "authorize_success" || ev.username != "alice" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if _, err := RunAuthorize(ctx, "", deps); !errors.Is(err, errNoToken) {
		t.Fatalf("expected no token, got %v", err)
	}
	if ev := rec.last(t); ev.username != "anonymous" || ev.metadata["reason"] != "no_token" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	for tok, reason := range map[string]string{"old": "expired", "bent": "tampered", "junk": "malformed"} {
		if _, err := RunAuthorize(ctx, "Bearer "+tok, deps); !errors.Is(err, errForbidden) {
			t.Fatalf("token %q: expected forbidden, got %v", tok, err)
		}
		if ev := rec.last(t); ev.metadata["reason"] != reason || ev.success {
			t.Fatalf("token %q: unexpected event %+v", tok, ev)
		}
	}

	if len(rec.events) != 5 || observed != 5 {
		t.Fatalf("expected one audit event and one latency sample per call, got %d/%d", len(rec.events), observed)
	}
	if rec.metrics[1] != 1 || rec.metrics[2] != 1 || rec.metrics[3] != 3 {
		t.Fatalf("unexpected metrics: %v", rec.metrics)
	}
}
