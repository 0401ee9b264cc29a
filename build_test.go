package trustroots

import (
	"crypto/x509"
	"errors"
	"iter"
	"slices"
	"testing"
)

func TestBuild_TallyAndFailurePolicy(t *testing.T) {
	// WHY: The fold must count every candidate exactly once, keep going past
	// corrupt entries, and fail only when candidates existed and none parsed.
	// An empty source is not an error.
	t.Parallel()

	valid := rootDERs(t, 3)
	tests := []struct {
		name        string
		input       [][]byte
		wantValid   int
		wantInvalid int
		wantErr     bool
	}{
		{name: "empty", input: nil},
		{name: "all_valid", input: valid, wantValid: 3},
		{name: "mixed", input: [][]byte{valid[0], corruptDER(), valid[1], {}, valid[2]}, wantValid: 3, wantInvalid: 2},
		{name: "single_valid_among_corrupt", input: [][]byte{corruptDER(), corruptDER(), valid[0]}, wantValid: 1, wantInvalid: 2},
		{name: "all_invalid", input: [][]byte{corruptDER(), []byte("junk")}, wantInvalid: 2, wantErr: true},
		{name: "single_invalid", input: [][]byte{{}}, wantInvalid: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, err := Build(Parse(slices.Values(tt.input)))
			if tt.wantErr {
				if !errors.Is(err, ErrAllCertificatesInvalid) {
					t.Fatalf("error = %v, want ErrAllCertificatesInvalid", err)
				}
				if store != nil {
					t.Error("expected no store on failure")
				}
				var be *BuildError
				if !errors.As(err, &be) {
					t.Fatalf("error %T is not *BuildError", err)
				}
				if be.Tally.Valid != tt.wantValid || be.Tally.Invalid != tt.wantInvalid {
					t.Errorf("tally = %+v, want valid=%d invalid=%d", be.Tally, tt.wantValid, tt.wantInvalid)
				}
				if be.Tally.Total() != len(tt.input) {
					t.Errorf("tally total = %d, want %d", be.Tally.Total(), len(tt.input))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if store == nil {
				t.Fatal("expected store")
			}
			tally := store.Tally()
			if tally.Valid != tt.wantValid || tally.Invalid != tt.wantInvalid {
				t.Errorf("tally = %+v, want valid=%d invalid=%d", tally, tt.wantValid, tt.wantInvalid)
			}
			if tally.Total() != len(tt.input) {
				t.Errorf("tally total = %d, want %d", tally.Total(), len(tt.input))
			}
			if store.Len() != tally.Valid {
				t.Errorf("store has %d certificates, want %d", store.Len(), tally.Valid)
			}
		})
	}
}

func TestBuild_ThreeValidOneCorrupt(t *testing.T) {
	// WHY: End-to-end path through the selector with an embedded bundle of
	// three good roots and one corrupt byte string.
	t.Parallel()

	ders := append(rootDERs(t, 3), corruptDER())
	sel := Selector{
		Config:        SourceConfig{Embedded: true},
		EmbeddedRoots: func() iter.Seq[[]byte] { return slices.Values(ders) },
	}
	store, err := sel.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := store.Tally(); got != (Tally{Valid: 3, Invalid: 1}) {
		t.Errorf("tally = %+v, want valid=3 invalid=1", got)
	}
	if store.Len() != 3 {
		t.Errorf("store has %d certificates, want 3", store.Len())
	}
	if store.Source() != SourceEmbedded {
		t.Errorf("source = %v, want embedded", store.Source())
	}
	for _, der := range ders[:3] {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			t.Fatal(err)
		}
		if !store.Contains(cert) {
			t.Errorf("store missing %s", cert.Subject.CommonName)
		}
	}
}

func TestBuild_NilSequence(t *testing.T) {
	t.Parallel()

	store, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d certificates, want 0", store.Len())
	}
}

func TestBuild_NilCertificateWithoutErrorCountsInvalid(t *testing.T) {
	// WHY: A misbehaving decoder yielding (nil, nil) must not put a nil
	// certificate into the pool.
	t.Parallel()

	results := func(yield func(*x509.Certificate, error) bool) {
		yield(nil, nil)
	}
	_, err := Build(results)
	if !errors.Is(err, ErrAllCertificatesInvalid) {
		t.Errorf("error = %v, want ErrAllCertificatesInvalid", err)
	}
}

func TestStoreBuilder_AddNil(t *testing.T) {
	t.Parallel()

	if err := newStoreBuilder().add(nil); err == nil {
		t.Error("expected error adding nil certificate")
	}
}

func TestBuildError_Message(t *testing.T) {
	t.Parallel()

	err := &BuildError{Tally: Tally{Invalid: 4}, Err: ErrAllCertificatesInvalid}
	want := "trustroots: all candidate certificates invalid (valid=0, invalid=4)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
