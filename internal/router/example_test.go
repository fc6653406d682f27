package router

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func ExampleRouter_GetPing() {
	server, _, _, _ := setupTestRouter(nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ping")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_PostSignup() {
	server, _, _, _ := setupTestRouter(nil)
	defer server.Close()

	form := url.Values{
		"name":     {"Ann"},
		"email":    {"ann@example.com"},
		"phnum":    {"+1 555 0100"},
		"password": {"correct horse"},
	}

	req, err := http.NewRequest(http.MethodPost, server.URL+"/signup", strings.NewReader(form.Encode()))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{CheckRedirect: noRedirects}

	resp, err := client.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Location:", resp.Header.Get("Location"))

	// Output:
	// Status Code: 302
	// Location: /login
}

func ExampleRouter_GetBooks() {
	server, _, _, _ := setupTestRouter(nil)
	defer server.Close()

	client := &http.Client{CheckRedirect: noRedirects}

	resp, err := client.Get(server.URL + "/books")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Location:", resp.Header.Get("Location"))

	// Output:
	// Status Code: 302
	// Location: /login
}

func ExampleRouter_GetBooksOfTheDay() {
	server, _, _, _ := setupTestRouter(nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/books/of-the-day")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Content-Type:", resp.Header.Get("Content-Type"))

	// Output:
	// Status Code: 200
	// Content-Type: text/html; charset=utf-8
}
