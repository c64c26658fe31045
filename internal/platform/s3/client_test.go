package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "fsn1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		HTTPClient:   &http.Client{Transport: &http.Transport{}},
	})

	return &Client{s3: client, region: "fsn1"}
}

func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), "https://fsn1.your-objectstorage.com", "fsn1", "key", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.region != "fsn1" {
		t.Errorf("expected region fsn1, got %s", client.region)
	}
}

func TestEnsureBucket_Exists(t *testing.T) {
	t.Parallel()

	var puts int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			puts++
			xmlResponse(w, http.StatusOK, "")
		}
	}))

	created, err := client.EnsureBucket(context.Background(), "mail-backups")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected existing bucket to be reused")
	}
	if puts != 0 {
		t.Errorf("expected no create call, got %d", puts)
	}
}

func TestEnsureBucket_Creates(t *testing.T) {
	t.Parallel()

	var createdPath string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			createdPath = r.URL.Path
			xmlResponse(w, http.StatusOK, "")
		}
	}))

	created, err := client.EnsureBucket(context.Background(), "mail-backups")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected bucket to be created")
	}
	if createdPath != "/mail-backups" {
		t.Errorf("unexpected create path %q", createdPath)
	}
}

func TestEnsureBucket_AlreadyOwnedByYou(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		xmlResponse(w, http.StatusConflict, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>BucketAlreadyOwnedByYou</Code>
  <Message>Your previous request to create the named bucket succeeded and you already own it.</Message>
</Error>`)
	}))

	created, err := client.EnsureBucket(context.Background(), "mail-backups")
	if err != nil {
		t.Fatalf("expected nil error for already owned bucket, got: %v", err)
	}
	if created {
		t.Error("expected created to be false")
	}
}

func TestEnsureBucket_TakenByOthers(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		xmlResponse(w, http.StatusConflict, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>BucketAlreadyExists</Code>
  <Message>The requested bucket name is not available.</Message>
</Error>`)
	}))

	_, err := client.EnsureBucket(context.Background(), "mail-backups")
	if err == nil || !strings.Contains(err.Error(), "failed to create bucket mail-backups") {
		t.Fatalf("expected create error, got %v", err)
	}
}

func TestEnsureBucket_AccessDenied(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.EnsureBucket(context.Background(), "mail-backups")
	if err == nil || !strings.Contains(err.Error(), "failed to check bucket mail-backups") {
		t.Fatalf("expected check error, got %v", err)
	}
}

func TestSetExpiration(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var body string
	var query string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(data)
		query = r.URL.RawQuery
		mu.Unlock()
		xmlResponse(w, http.StatusOK, "")
	}))

	if err := client.SetExpiration(context.Background(), "mail-backups", "postal/", 14); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(query, "lifecycle") {
		t.Errorf("expected lifecycle subresource, got query %q", query)
	}
	for _, want := range []string{"<Days>14</Days>", "<Prefix>postal/</Prefix>", "<Status>Enabled</Status>", ExpirationRuleID} {
		if !strings.Contains(body, want) {
			t.Errorf("lifecycle body missing %s: %s", want, body)
		}
	}
}

func TestSetExpiration_RejectsZero(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.SetExpiration(context.Background(), "mail-backups", "postal/", 0); err == nil {
		t.Fatal("expected error for zero retention")
	}
}

func TestLatestObject(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("prefix"); got != "postal/" {
			t.Errorf("unexpected prefix %q", got)
		}
		xmlResponse(w, http.StatusOK, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>mail-backups</Name>
  <Prefix>postal/</Prefix>
  <KeyCount>3</KeyCount>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>postal/a.sql.gz</Key><LastModified>2026-10-01T03:00:00.000Z</LastModified><Size>10</Size></Contents>
  <Contents><Key>postal/c.sql.gz</Key><LastModified>2026-10-03T03:00:00.000Z</LastModified><Size>30</Size></Contents>
  <Contents><Key>postal/b.sql.gz</Key><LastModified>2026-10-02T03:00:00.000Z</LastModified><Size>20</Size></Contents>
</ListBucketResult>`)
	}))

	obj, err := client.LatestObject(context.Background(), "mail-backups", "postal/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj == nil {
		t.Fatal("expected an object")
	}
	if obj.Key != "postal/c.sql.gz" || obj.Size != 30 {
		t.Errorf("unexpected latest object: %+v", obj)
	}
}

func TestLatestObject_Empty(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, http.StatusOK, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>mail-backups</Name>
  <KeyCount>0</KeyCount>
  <IsTruncated>false</IsTruncated>
</ListBucketResult>`)
	}))

	obj, err := client.LatestObject(context.Background(), "mail-backups", "postal/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj != nil {
		t.Errorf("expected no object, got %+v", obj)
	}
}

func TestIsNotFoundError_Nil(t *testing.T) {
	t.Parallel()
	if isNotFoundError(nil) || isBucketAlreadyOwnedByYou(nil) {
		t.Error("nil error must not match")
	}
}
