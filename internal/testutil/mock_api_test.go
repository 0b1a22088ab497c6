package testutil

import (
	"net/http"
	"strings"
	"testing"
)

func TestMockPaymentAPI_Sequence(t *testing.T) {
	mock := NewMockPaymentAPI()
	defer mock.Close()

	mock.SetSequence(CorrectionPath,
		NewStatusResponse(http.StatusTooManyRequests, ""),
		NewSuccessResponse(),
	)

	want := []int{http.StatusTooManyRequests, http.StatusOK, http.StatusOK}
	for i, code := range want {
		req, _ := http.NewRequest(http.MethodPost, mock.CorrectionURL(), strings.NewReader(`{}`))
		req.SetBasicAuth("pk", "secret")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != code {
			t.Errorf("request %d status = %d, want %d", i, resp.StatusCode, code)
		}
	}

	if got := mock.PathRequestCount(CorrectionPath); got != 3 {
		t.Errorf("PathRequestCount() = %d, want 3", got)
	}

	last, ok := mock.LastRequest()
	if !ok {
		t.Fatal("LastRequest() found nothing")
	}
	if last.User != "pk" || last.Password != "secret" {
		t.Errorf("basic auth = %s:%s, want pk:secret", last.User, last.Password)
	}
	if string(last.Body) != `{}` {
		t.Errorf("body = %s, want {}", last.Body)
	}
}

func TestCorrectionRecords(t *testing.T) {
	records := CorrectionRecords(5, "a", "b")
	if len(records) != 5 {
		t.Fatalf("len = %d, want 5", len(records))
	}
	if records[0].PublicID() != "a" || records[1].PublicID() != "b" || records[4].PublicID() != "a" {
		t.Errorf("unexpected public ids: %s %s %s",
			records[0].PublicID(), records[1].PublicID(), records[4].PublicID())
	}
}
