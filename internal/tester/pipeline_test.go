package tester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
	"github.com/neskk/PoGo-Proxies/internal/model"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "tester/pipeline")
}

func newTestSession() *fetcher.Session {
	cfg := fetcher.DefaultConfig()
	cfg.Retries = 0
	return fetcher.NewSession(cfg)
}

var _ = Describe("runStage", func() {
	var sess *fetcher.Session

	AfterEach(func() {
		if sess != nil {
			sess.Close()
		}
	})

	It("classifies 403 as BANNED", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()
		sess = newTestSession()

		result := runStage(context.Background(), sess, srv.URL, "", "ua", func([]byte) bool { return true })
		Expect(result.Status).To(Equal(model.StatusBanned))
	})

	It("classifies 409 as BANNED", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer srv.Close()
		sess = newTestSession()

		result := runStage(context.Background(), sess, srv.URL, "", "ua", func([]byte) bool { return true })
		Expect(result.Status).To(Equal(model.StatusBanned))
	})

	It("classifies an empty body as ERROR", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()
		sess = newTestSession()

		result := runStage(context.Background(), sess, srv.URL, "", "ua", func([]byte) bool { return true })
		Expect(result.Status).To(Equal(model.StatusError))
		Expect(result.Err).To(Equal("empty body"))
	})

	It("classifies a failed predicate as ERROR", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		}))
		defer srv.Close()
		sess = newTestSession()

		result := runStage(context.Background(), sess, srv.URL, "", "ua", func([]byte) bool { return false })
		Expect(result.Status).To(Equal(model.StatusError))
		Expect(result.Err).To(Equal("predicate failed"))
	})

	It("classifies a passing predicate as OK", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		}))
		defer srv.Close()
		sess = newTestSession()

		result := runStage(context.Background(), sess, srv.URL, "", "ua", func([]byte) bool { return true })
		Expect(result.Status).To(Equal(model.StatusOK))
	})

	It("classifies an unreachable target as ERROR", func() {
		sess = newTestSession()

		result := runStage(context.Background(), sess, "http://127.0.0.1:1", "", "ua", func([]byte) bool { return true })
		Expect(result.Status).To(Equal(model.StatusError))
	})
})

var _ = Describe("RunPipeline", func() {
	It("short-circuits after the first non-OK stage", func() {
		judge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer judge.Close()

		nianticReached := false
		niantic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nianticReached = true
		}))
		defer niantic.Close()

		cfg := Config{
			JudgeURL:   judge.URL,
			NianticURL: niantic.URL,
			UserAgent:  "ua",
		}
		sess := newTestSession()
		defer sess.Close()

		job := &model.TestJob{}
		RunPipeline(context.Background(), cfg, sess, job)

		Expect(job.Anonymous.Status).To(Equal(model.StatusBanned))
		Expect(job.Niantic.Status).To(Equal(model.StatusUnknown))
		Expect(job.AllOK()).To(BeFalse())
		Expect(nianticReached).To(BeFalse())
	})

	It("skips the anonymity stage when SkipAnonymity is set", func() {
		niantic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("v1.2.3"))
		}))
		defer niantic.Close()

		ptcLogin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"execution":"abc"}`))
		}))
		defer ptcLogin.Close()

		ptcSignup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<title>Sign Up</title>"))
		}))
		defer ptcSignup.Close()

		cfg := Config{
			SkipAnonymity:  true,
			NianticURL:     niantic.URL,
			PTCLoginURL:    ptcLogin.URL,
			PTCSignupURL:   ptcSignup.URL,
			PTCSignupTitle: "Sign Up",
			PogoVersion:    "v1.2.3",
			UserAgent:      "ua",
		}
		sess := newTestSession()
		defer sess.Close()

		job := &model.TestJob{}
		RunPipeline(context.Background(), cfg, sess, job)

		Expect(job.Anonymous.Status).To(Equal(model.StatusOK))
		Expect(job.AllOK()).To(BeTrue())
	})
})
