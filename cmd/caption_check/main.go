package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"caption-llm/internal/client"
	"caption-llm/internal/config"
	"caption-llm/internal/llm"
	"caption-llm/internal/service"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	httpClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModerationModel, cfg.LLMTimeout, logger)
	var completer llm.Completer = httpClient
	if cfg.LLMAPIStyle == config.APIStyleChat {
		completer = llm.NewChatClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	}
	if !completer.Configured() {
		log.Fatal("LLM_API_KEY is required for caption_check")
	}

	scenarios := []Scenario{
		{Name: "Paisaje corto", ImageURL: "https://upload.wikimedia.org/wikipedia/commons/3/3f/Fronalpstock_big.jpg", MaxWords: 10},
		{Name: "Paisaje poetico", ImageURL: "https://upload.wikimedia.org/wikipedia/commons/3/3f/Fronalpstock_big.jpg", Tones: []string{"Poetic"}, MaxWords: 30},
		{Name: "Gato divertido", ImageURL: "https://upload.wikimedia.org/wikipedia/commons/3/3a/Cat03.jpg", Tones: []string{"Fun", "Casual"}, MaxWords: 20},
		{Name: "Gato profesional largo", ImageURL: "https://upload.wikimedia.org/wikipedia/commons/3/3a/Cat03.jpg", Tones: []string{"Professional"}, MaxWords: 50},
	}

	limiter := service.NewMemoryRateLimiter(time.Hour, len(scenarios))
	captionSvc := service.NewCaptionService(logger, limiter, completer, httpClient, nil, service.CaptionOptions{
		Model:          cfg.LLMModel,
		MaxInputLength: cfg.MaxInputLength,
	})

	total := 0
	for _, sc := range scenarios {
		fmt.Printf("\n===== %s =====\n", sc.Name)

		form := client.NewCaptionForm()
		form.SetImageURL(sc.ImageURL)
		if err := form.SetMaxWords(sc.MaxWords); err != nil {
			log.Fatalf("scenario %s: %v", sc.Name, err)
		}
		if err := form.SetTones(sc.Tones); err != nil {
			log.Fatalf("scenario %s: %v", sc.Name, err)
		}
		input, err := form.BuildInput()
		if err != nil {
			log.Fatalf("scenario %s: %v", sc.Name, err)
		}

		if err := captionSvc.Admit("caption_check"); err != nil {
			log.Fatalf("scenario %s: %v", sc.Name, err)
		}
		out, err := captionSvc.Generate(ctx, "caption_check", input)
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			continue
		}

		a := scoreAdherence(out.Response, sc.MaxWords)
		total += a.Score
		fmt.Printf("Prompt: %s\n", form.Prompt())
		fmt.Printf("Caption: %s\n", out.Response)
		fmt.Printf("Palabras: %d/%d  excedido=%t  score=%d\n", a.Words, sc.MaxWords, a.OverLimit, a.Score)
	}

	fmt.Printf("\nScore promedio: %.2f\n", float64(total)/float64(len(scenarios)))
}
