package main

import (
	"fmt"
	"os"
	"time"

	dcgan "github.com/LdDl/dcgan-go"
)

func main() {
	cfg := dcgan.DefaultConfig()

	/* Load images of single class */
	st := time.Now()
	dataset, err := dcgan.LoadCIFAR10(cfg.DataDir, cfg.TargetLabel)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Loaded %d images of class %d in %v\n", dataset.Len(), cfg.TargetLabel, time.Since(st))

	/* Define Discriminator, Generator and GAN */
	trainer, err := dcgan.NewTrainer(cfg, dataset, os.Stdout)
	if err != nil {
		panic(err)
	}
	defer trainer.Close()

	/* Run through all epochs */
	summaries, err := trainer.Train()
	if err != nil {
		panic(err)
	}
	if len(summaries) > 0 {
		last := summaries[len(summaries)-1]
		fmt.Printf("Done. Last epoch: accuracy real: %.0f%%, fake: %.0f%%. Generator weights: %s\n", last.AccuracyReal*100, last.AccuracyFake*100, last.WeightsFile)
	}
}
