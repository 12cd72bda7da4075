// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

//go:build integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"nhooyr.io/websocket"

	"github.com/deckhall/deckhall/internal/presence"
)

func call(client *http.Client, method, path string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, out
}

func credentials(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func signup(username string) *http.Client {
	client := newClient()
	status, body := call(client, http.MethodPost, "/api/signup", credentials(username, "correct horse"))
	Expect(status).To(Equal(http.StatusCreated), string(body))
	return client
}

func listDecks(client *http.Client) []map[string]any {
	status, body := call(client, http.MethodGet, "/api/decks", nil)
	Expect(status).To(Equal(http.StatusOK), string(body))
	var decks []map[string]any
	Expect(json.Unmarshal(body, &decks)).To(Succeed())
	return decks
}

var _ = Describe("Accounts", func() {
	BeforeEach(truncate)

	It("signs up, logs out and logs back in", func() {
		client := signup("alice")

		status, body := call(client, http.MethodGet, "/api/current-user", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"username":"alice"`))

		status, _ = call(client, http.MethodPost, "/api/logout", nil)
		Expect(status).To(Equal(http.StatusNoContent))

		status, _ = call(client, http.MethodGet, "/api/current-user", nil)
		Expect(status).To(Equal(http.StatusFound))

		status, _ = call(client, http.MethodPost, "/api/login", credentials("alice", "wrong password"))
		Expect(status).To(Equal(http.StatusUnauthorized))

		status, _ = call(client, http.MethodPost, "/api/login", credentials("alice", "correct horse"))
		Expect(status).To(Equal(http.StatusOK))

		status, _ = call(client, http.MethodGet, "/api/current-user", nil)
		Expect(status).To(Equal(http.StatusOK))
	})

	It("admits exactly one of many concurrent signups for the same username", func() {
		const attempts = 8
		statuses := make([]int, attempts)

		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				statuses[i], _ = call(newClient(), http.MethodPost, "/api/signup", credentials("racer", "correct horse"))
			}()
		}
		wg.Wait()

		created, conflicts := 0, 0
		for _, s := range statuses {
			switch s {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
				conflicts++
			}
		}
		Expect(created).To(Equal(1))
		Expect(conflicts).To(Equal(attempts - 1))
	})

	It("rejects sessions after the stored row is gone", func() {
		client := signup("bob")

		_, err := env.pool.Exec(env.ctx, `DELETE FROM sessions`)
		Expect(err).NotTo(HaveOccurred())

		status, _ := call(client, http.MethodGet, "/api/current-user", nil)
		Expect(status).To(Equal(http.StatusFound))
	})
})

var _ = Describe("Decks", func() {
	BeforeEach(truncate)

	It("scopes every operation to the deck owner", func() {
		alice := signup("alice")
		bob := signup("bob")

		status, body := call(alice, http.MethodPost, "/api/decks", map[string]any{
			"deck": map[string]any{"name": "Burn", "main": []any{"Lightning Bolt"}},
		})
		Expect(status).To(Equal(http.StatusOK), string(body))
		var saved map[string]any
		Expect(json.Unmarshal(body, &saved)).To(Succeed())
		id, _ := saved["id"].(string)
		Expect(id).NotTo(BeEmpty())
		Expect(saved["sideboard"]).To(BeEmpty())

		Expect(listDecks(alice)).To(HaveLen(1))
		Expect(listDecks(bob)).To(BeEmpty())

		By("bob cannot overwrite alice's deck")
		status, _ = call(bob, http.MethodPost, "/api/decks", map[string]any{
			"deck": map[string]any{"id": id, "name": "Stolen", "main": []any{}},
		})
		Expect(status).To(Equal(http.StatusNotFound))

		By("bob cannot delete alice's deck")
		status, _ = call(bob, http.MethodDelete, "/api/decks", map[string]any{"deckId": id})
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(listDecks(alice)).To(HaveLen(1))

		By("alice replaces and then deletes her deck")
		status, body = call(alice, http.MethodPost, "/api/decks", map[string]any{
			"deck": map[string]any{"id": id, "name": "Burn v2", "main": []any{"Lightning Bolt", "Chain Lightning"}},
		})
		Expect(status).To(Equal(http.StatusOK), string(body))
		decks := listDecks(alice)
		Expect(decks).To(HaveLen(1))
		Expect(decks[0]["name"]).To(Equal("Burn v2"))
		Expect(decks[0]["main"]).To(HaveLen(2))

		status, _ = call(alice, http.MethodDelete, "/api/decks", map[string]any{"deckId": id})
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(listDecks(alice)).To(BeEmpty())
	})
})

var _ = Describe("Games", func() {
	BeforeEach(truncate)

	It("announces an opened game to connected sockets", func() {
		host := signup("alice")

		ctx, cancel := context.WithTimeout(env.ctx, 10*time.Second)
		defer cancel()

		wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/games"
		conn, _, err := websocket.Dial(ctx, wsURL, nil)
		Expect(err).NotTo(HaveOccurred())
		defer conn.CloseNow()

		Eventually(env.hub.Count).WithTimeout(5 * time.Second).Should(Equal(1))

		status, body := call(host, http.MethodPost, "/api/games", map[string]any{
			"game": map[string]any{"name": "Friday draft"},
		})
		Expect(status).To(Equal(http.StatusCreated), string(body))

		_, raw, err := conn.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		var envelope presence.Envelope
		Expect(json.Unmarshal(raw, &envelope)).To(Succeed())
		Expect(envelope.Type).To(Equal(presence.EventAdded))
		Expect(string(envelope.Data)).To(ContainSubstring("Friday draft"))

		status, body = call(host, http.MethodGet, "/api/games", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring("Friday draft"))
	})
})
