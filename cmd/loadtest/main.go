package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result records one HTTP round trip for aggregation.
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	productID := flag.Int("product", 1, "product id")
	warehouseID := flag.Int("warehouse", 1, "warehouse id")
	seed := flag.Bool("seed", true, "seed warehouse stock before the run")
	seedQty := flag.Int("seed-qty", 50, "stock quantity to seed")
	adminToken := flag.String("admin-token", "dev-admin-token", "admin token for seeding")
	slug := flag.String("slug", "ikoyi-executive-desk", "product slug for the browse test")

	// Reservation test: many buyers racing for limited stock.
	nBuyers := flag.Int("buyers", 200, "distinct buyers")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	if *seed {
		err := doPOST(client, fmt.Sprintf("%s/api/admin/stock", *baseURL), http.MethodPut, map[string]any{
			"warehouse_id":   *warehouseID,
			"product_id":     *productID,
			"stock_quantity": *seedQty,
			"reorder_level":  5,
		}, map[string]string{"X-Admin-Token": *adminToken})
		if err != nil {
			panic(fmt.Sprintf("seed failed: %v", err))
		}
		fmt.Println("seed ok")
	}

	// 1) Reservation race: total reserved must never exceed seeded stock.
	fmt.Printf("start reservation test: product=%d warehouse=%d buyers=%d concurrency=%d\n",
		*productID, *warehouseID, *nBuyers, *concurrency)
	results := runOrders(client, *baseURL, *productID, *warehouseID, *nBuyers, *concurrency)
	printSummary("reservation", results)

	avail, err := getAvailable(client, *baseURL, *slug, *warehouseID)
	if err != nil {
		fmt.Println("availability check err:", err)
	} else {
		fmt.Println("final available:", avail)
	}

	// 2) Rate limit test: hammer the browse endpoint from one client.
	fmt.Println("\nstart rate limit test: 200 list requests, concurrency 50")
	results2 := runBrowse(client, *baseURL, 200, 50)
	printSummary("rate_limit", results2)
}

func runOrders(client *http.Client, baseURL string, productID, warehouseID, nBuyers, concurrency int) []Result {
	type Req struct {
		ProductID    int    `json:"product_id"`
		WarehouseID  int    `json:"warehouse_id"`
		Quantity     int    `json:"quantity"`
		CustomerName string `json:"customer_name"`
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, nBuyers)

	for i := 0; i < nBuyers; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			req := Req{
				ProductID:    productID,
				WarehouseID:  warehouseID,
				Quantity:     1,
				CustomerName: fmt.Sprintf("buyer-%d", idx+1),
			}
			results[idx] = orderOnce(client, baseURL, req)
		}(i)
	}

	wg.Wait()
	return results
}

func runBrowse(client *http.Client, baseURL string, total, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			resp, err := client.Get(fmt.Sprintf("%s/api/products", baseURL))
			if err != nil {
				results[idx] = Result{Err: err}
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			results[idx] = Result{Status: resp.StatusCode, Body: string(body)}
		}(i)
	}

	wg.Wait()
	return results
}

func orderOnce(client *http.Client, baseURL string, req any) Result {
	b, _ := json.Marshal(req)
	url := fmt.Sprintf("%s/api/orders", baseURL)
	httpReq, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

// printSummary aggregates the status code distribution.
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 404, 429, 500, 503} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

// doPOST sends a JSON request with optional headers.
func doPOST(client *http.Client, url, method string, body any, headers map[string]string) error {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

// getAvailable fetches the aggregated availability for one product slug.
func getAvailable(client *http.Client, baseURL, slug string, warehouseID int) (int, error) {
	url := fmt.Sprintf("%s/api/products/%s/stock?warehouse_id=%d", baseURL, slug, warehouseID)
	resp, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Code int `json:"code"`
		Data struct {
			TotalAvailable int `json:"total_available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.Data.TotalAvailable, nil
}
