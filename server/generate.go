package server

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/labstack/echo/v4"
)

// placeholderScale shrinks the nominal size so placeholders stay small
const placeholderScale = 16

// generateFailure uses the error field, like the production generate route
func generateFailure(c echo.Context, status int, msg string) error {
	return c.JSON(status, api.Envelope{Success: false, Error: msg})
}

// handleGenerate renders placeholder images for the prompt
func (s *Server) handleGenerate(c echo.Context) error {
	if !s.cfg.GenerationEnabled {
		return generateFailure(c, http.StatusInternalServerError, "API key not configured")
	}

	var req model.GenerationRequest
	if err := c.Bind(&req); err != nil {
		return generateFailure(c, http.StatusBadRequest, "Please provide a JSON request body")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return generateFailure(c, http.StatusBadRequest, "Please provide a prompt")
	}

	ratio, err := model.ParseRatio(string(req.Ratio))
	if err != nil {
		ratio = model.DefaultRatio
	}
	count := req.Count
	if count < model.MinImageCount || count > model.MaxImageCount {
		count = 1
	}

	logger.Info("Generating placeholders",
		logger.F("ratio", ratio),
		logger.F("size", ratio.Size()),
		logger.F("count", count))

	images := make([]model.Image, 0, count)
	for i := range count {
		data, err := placeholder(prompt, ratio, i)
		if err != nil {
			logger.Error("Failed to render placeholder", logger.F("error", err))
			return generateFailure(c, http.StatusInternalServerError, "Image generation failed")
		}
		images = append(images, model.Image{Base64: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)})
	}

	return c.JSON(http.StatusOK, api.GenerateResponse{
		Envelope:   api.Envelope{Success: true},
		Images:     images,
		TaskStatus: "SUCCEEDED",
	})
}

// placeholder draws a flat image in the ratio's proportions, coloured by prompt and index
func placeholder(prompt string, ratio model.Ratio, index int) ([]byte, error) {
	w, h, err := parseSize(ratio.Size())
	if err != nil {
		return nil, err
	}
	w, h = max(w/placeholderScale, 1), max(h/placeholderScale, 1)

	hash := fnv.New32a()
	fmt.Fprintf(hash, "%s#%d", prompt, index)
	sum := hash.Sum32()
	fill := color.RGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseSize reads "W*H"
func parseSize(size string) (int, int, error) {
	ws, hs, ok := strings.Cut(size, "*")
	if !ok {
		return 0, 0, fmt.Errorf("malformed size %q", size)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, err
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}
