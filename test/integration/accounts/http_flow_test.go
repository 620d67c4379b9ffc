// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package accounts_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/postgres"
	"github.com/holomush/accounts/internal/session"
	"github.com/holomush/accounts/internal/web"
)

var _ = Describe("HTTP account flow on PostgreSQL", func() {
	var (
		ctx    context.Context
		server *httptest.Server
		client *http.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateUsers(ctx)
		gin.SetMode(gin.TestMode)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		tokens, err := auth.NewJWTTokenService([]byte("integration-secret"), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		svc, err := auth.NewServiceWithLogger(postgres.NewUserRepository(env.pool), hasher, tokens, logger)
		Expect(err).NotTo(HaveOccurred())
		cookies, err := session.NewCookieTransport(session.CookieConfig{MaxAge: time.Hour})
		Expect(err).NotTo(HaveOccurred())

		router, err := web.NewRouter(web.Options{Service: svc, Sessions: cookies, Logger: logger})
		Expect(err).NotTo(HaveOccurred())
		server = httptest.NewServer(router)
		DeferCleanup(server.Close)

		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{Jar: jar, Timeout: 10 * time.Second}
	})

	post := func(path, body string) (int, map[string]any) {
		resp, err := client.Post(server.URL+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		var decoded map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
		return resp.StatusCode, decoded
	}

	get := func(path string) (int, map[string]any) {
		resp, err := client.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		var decoded map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
		return resp.StatusCode, decoded
	}

	It("registers, logs in, reads the profile and logs out", func() {
		status, body := post("/auth/register",
			`{"fullName":"Ada Lovelace","email":"ada@example.com","password":"analytical","dateOfBirth":"1815-12-10"}`)
		Expect(status).To(Equal(http.StatusCreated))
		Expect(body).To(HaveKeyWithValue("message", "Registration successful."))

		status, body = post("/auth/login", `{"email":"ada@example.com","password":"analytical"}`)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("message", "Login successful"))
		Expect(body["user"]).To(HaveKeyWithValue("email", "ada@example.com"))
		Expect(body["user"]).NotTo(HaveKey("passwordHash"))

		status, body = get("/auth/profile")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("fullName", "Ada Lovelace"))
		Expect(body).To(HaveKeyWithValue("dateOfBirth", "1815-12-10T00:00:00Z"))

		status, _ = post("/auth/logout", ``)
		Expect(status).To(Equal(http.StatusOK))

		status, body = get("/auth/profile")
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(HaveKeyWithValue("error", "Unauthorized"))
	})

	It("rejects a second registration for the same email", func() {
		body := `{"fullName":"Ada Lovelace","email":"ada@example.com","password":"analytical"}`
		status, _ := post("/auth/register", body)
		Expect(status).To(Equal(http.StatusCreated))

		status, resp := post("/auth/register", body)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(resp).To(HaveKeyWithValue("error", "Email already registered"))
	})

	It("accepts exactly one of many concurrent registrations", func() {
		const attempts = 6
		body := `{"fullName":"Race","email":"race@example.com","password":"password1"}`

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			statuses = map[int]int{}
		)
		for range attempts {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				resp, err := http.Post(server.URL+"/auth/register", "application/json", strings.NewReader(body))
				Expect(err).NotTo(HaveOccurred())
				_ = resp.Body.Close()
				mu.Lock()
				statuses[resp.StatusCode]++
				mu.Unlock()
			}()
		}
		wg.Wait()

		Expect(statuses).To(Equal(map[int]int{
			http.StatusCreated:    1,
			http.StatusBadRequest: attempts - 1,
		}))
	})

	It("answers a wrong password and an unknown email identically", func() {
		status, _ := post("/auth/register", `{"fullName":"Ada","email":"ada@example.com","password":"analytical"}`)
		Expect(status).To(Equal(http.StatusCreated))

		wrongStatus, wrong := post("/auth/login", `{"email":"ada@example.com","password":"not-the-one"}`)
		unknownStatus, unknown := post("/auth/login", `{"email":"nobody@example.com","password":"analytical"}`)

		Expect(wrongStatus).To(Equal(http.StatusUnauthorized))
		Expect(unknownStatus).To(Equal(http.StatusUnauthorized))
		Expect(wrong["error"]).To(Equal(unknown["error"]))
		Expect(wrong["error"]).To(Equal("Invalid credentials"))
	})
})
