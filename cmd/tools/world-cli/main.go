package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultServerAddr = "http://localhost:8090"

type genericResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	base string
	http *http.Client
}

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "адрес отладочного API")
		command    = flag.String("cmd", "stats", "команда: stats, block, slab, path, set")
		pos        = flag.String("pos", "", "позиция x,y,z (block, set)")
		to         = flag.String("to", "", "вторая позиция x,y,z (path, set)")
		slab       = flag.String("slab", "0,0,0", "слэб chunkX,chunkY,slab (slab)")
		goal       = flag.String("goal", "arrive", "цель поиска: arrive, adjacent, nearby")
		radius     = flag.Int("radius", 2, "радиус для goal=nearby")
		height     = flag.Int("height", 2, "высота агента")
		blockName  = flag.String("block", "stone", "тип блока (set)")
		timeout    = flag.Duration("timeout", 15*time.Second, "таймаут запроса")
	)
	flag.Parse()

	c := &client{base: strings.TrimRight(*serverAddr, "/"), http: &http.Client{Timeout: *timeout}}

	var (
		resp *genericResponse
		err  error
	)
	switch *command {
	case "stats":
		resp, err = c.get("/api/stats", nil)
	case "block":
		resp, err = c.get("/api/block", url.Values{"pos": {*pos}, "height": {fmt.Sprint(*height)}})
	case "slab":
		resp, err = c.get("/api/slab/"+strings.ReplaceAll(*slab, ",", "/"), nil)
	case "path":
		resp, err = c.get("/api/path", url.Values{
			"from":   {*pos},
			"to":     {*to},
			"goal":   {*goal},
			"radius": {fmt.Sprint(*radius)},
			"height": {fmt.Sprint(*height)},
		})
	case "set":
		resp, err = c.setBlocks(*pos, *to, *blockName)
	default:
		log.Fatalf("❌ Неизвестная команда %q", *command)
	}
	if err != nil {
		log.Fatalf("❌ %s: %v", *command, err)
	}
	printResponse(resp)
	if !resp.Success {
		os.Exit(1)
	}
}

func (c *client) get(path string, q url.Values) (*genericResponse, error) {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	r, err := c.http.Get(u)
	if err != nil {
		return nil, err
	}
	return decode(r)
}

func (c *client) setBlocks(from, to, blockName string) (*genericResponse, error) {
	fv, err := parseVec(from)
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{"from": fv, "block": blockName}
	if to != "" {
		tv, err := parseVec(to)
		if err != nil {
			return nil, err
		}
		body["to"] = tv
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	r, err := c.http.Post(c.base+"/api/blocks", "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return decode(r)
}

func decode(r *http.Response) (*genericResponse, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	var resp genericResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", r.StatusCode, strings.TrimSpace(string(body)))
	}
	return &resp, nil
}

func parseVec(s string) (map[string]int, error) {
	var x, y, z int
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &x, &y, &z); err != nil {
		return nil, fmt.Errorf("ожидается x,y,z: %q", s)
	}
	return map[string]int{"x": x, "y": y, "z": z}, nil
}

func printResponse(resp *genericResponse) {
	status := "✅"
	if !resp.Success {
		status = "❌"
	}
	fmt.Printf("%s %s\n", status, resp.Message)
	if len(resp.Data) == 0 {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Data, "", "  "); err != nil {
		fmt.Println(string(resp.Data))
		return
	}
	fmt.Println(pretty.String())
}
