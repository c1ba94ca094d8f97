package guest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ProofFetch/internal/commitment"
	"ProofFetch/internal/engine"
	"ProofFetch/internal/fetch"
	"ProofFetch/internal/journal"
)

// newTestExecutor returns an executor with the fetch program registered.
func newTestExecutor(t *testing.T) (*engine.Executor, engine.ProgramID) {
	t.Helper()

	ex := engine.NewExecutor(fetch.New())
	t.Cleanup(func() { ex.Close() })

	return ex, Register(ex)
}

func TestRegisterUsesImageID(t *testing.T) {
	_, id := newTestExecutor(t)

	if id != ID() {
		t.Errorf("registered id %s, want %s", id, ID())
	}
}

func TestRunCommitsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{ "some_response_param": "value" }`))
	}))
	defer srv.Close()

	ex, id := newTestExecutor(t)
	url := srv.URL + "/somemethod?someparam=somevalue"

	out, err := ex.Execute(context.Background(), id, journal.EncodeInput(url))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	env, err := journal.DecodeEnvelope(out)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}

	if env.RequestHash != commitment.Compute(url) {
		t.Errorf("request hash = %s, want %s", env.RequestHash, commitment.Compute(url))
	}

	if string(env.Response) != `{"some_response_param":"value"}` {
		t.Errorf("response = %s", env.Response)
	}
}

func TestRunFetchFailureCommitsNothing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ex, id := newTestExecutor(t)

	out, err := ex.Execute(context.Background(), id, journal.EncodeInput(url))
	if !errors.Is(err, engine.ErrProgramFailed) {
		t.Fatalf("expected ErrProgramFailed, got %v", err)
	}

	if out != nil {
		t.Errorf("journal should be nil, got %q", out)
	}
}

// rawFetcher returns body unchecked, like a host fetcher without JSON validation.
type rawFetcher struct {
	body []byte
}

func (f rawFetcher) Get(context.Context, string) ([]byte, error) {
	return f.body, nil
}

func TestRunNonJSONCommitsNothing(t *testing.T) {
	for _, body := range []string{"plain text", "", `{"truncated":`} {
		ex := engine.NewExecutor(rawFetcher{body: []byte(body)})
		t.Cleanup(func() { ex.Close() })
		id := Register(ex)

		out, err := ex.Execute(context.Background(), id, journal.EncodeInput("https://api.someapi.com/x"))
		if !errors.Is(err, ErrNotJSON) {
			t.Errorf("body %q: expected ErrNotJSON, got %v", body, err)
		}

		if out != nil {
			t.Errorf("body %q: journal should be nil, got %q", body, out)
		}
	}
}

func TestNonJSONIsNeverSealed(t *testing.T) {
	key, err := engine.SealKeyFromSeed(make([]byte, 32))
	if err != nil {
		t.Fatalf("SealKeyFromSeed: %v", err)
	}

	ex := engine.NewExecutor(rawFetcher{body: []byte("<html>oops</html>")})
	t.Cleanup(func() { ex.Close() })
	id := Register(ex)

	receipt, err := engine.NewProver(ex, key).Prove(context.Background(), id, journal.EncodeInput("https://api.someapi.com/x"))
	if !errors.Is(err, ErrNotJSON) {
		t.Fatalf("expected ErrNotJSON, got %v", err)
	}

	if receipt != nil {
		t.Error("a receipt was sealed for a non-JSON response")
	}
}

func TestRunCompactsResponse(t *testing.T) {
	ex := engine.NewExecutor(rawFetcher{body: []byte("{ \"a\" : [1, 2] }\n")})
	t.Cleanup(func() { ex.Close() })
	id := Register(ex)

	out, err := ex.Execute(context.Background(), id, journal.EncodeInput("https://api.someapi.com/x"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	env, err := journal.DecodeEnvelope(out)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}

	if string(env.Response) != `{"a":[1,2]}` {
		t.Errorf("response = %s", env.Response)
	}
}

// The identity pins the program image. Changing Image or Run's behavior
// must come with a new version line and a new value here.
func TestProgramIDGolden(t *testing.T) {
	const want = "4e64651ce12ae05aa9c66a1526515cdcd3d284c6c4f08943bc3670058873d269"

	if got := ID().String(); got != want {
		t.Errorf("ID() = %s, want %s", got, want)
	}
}

func TestRunMalformedInput(t *testing.T) {
	ex, id := newTestExecutor(t)

	_, err := ex.Execute(context.Background(), id, []byte{0xff})
	if !errors.Is(err, journal.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
