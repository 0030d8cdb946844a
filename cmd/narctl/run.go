package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"narengine/pkg/nar"
	"narengine/pkg/types"
)

type runFlags struct {
	context       string
	maxTokens     uint32
	temperature   float32
	topP          float32
	topK          uint32
	stops         []string
	seed          uint32
	deterministic bool
	timeout       uint32
	filter        bool
	profanity     bool
	stream        bool
}

func (f *runFlags) params(prompt string) types.GenerateParams {
	p := nar.DefaultGenerateParams()
	p.Prompt = prompt
	p.Context = f.context
	if f.maxTokens > 0 {
		p.MaxTokens = f.maxTokens
	}
	if f.temperature > 0 {
		p.Temperature = f.temperature
	}
	if f.topP > 0 {
		p.TopP = f.topP
	}
	if f.topK > 0 {
		p.TopK = f.topK
	}
	p.SetStopSequences(f.stops...)
	p.Seed = f.seed
	p.Deterministic = f.deterministic
	p.TimeoutSeconds = f.timeout
	p.ApplyContentFilter = f.filter
	p.EnableProfanityFilter = f.profanity
	return p
}

func addGenerateFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.context, "context", "", "Context text prepended to the prompt")
	cmd.Flags().Uint32VarP(&f.maxTokens, "max-tokens", "n", 0, "Maximum tokens to generate (0 = engine default)")
	cmd.Flags().Float32VarP(&f.temperature, "temperature", "t", 0, "Sampling temperature (0 = engine default)")
	cmd.Flags().Float32Var(&f.topP, "top-p", 0, "Nucleus sampling threshold (0 = engine default)")
	cmd.Flags().Uint32Var(&f.topK, "top-k", 0, "Top-k cutoff; 1 is greedy (0 = engine default)")
	cmd.Flags().StringArrayVar(&f.stops, "stop", nil, "Stop sequence (repeatable, up to 8)")
	cmd.Flags().Uint32Var(&f.seed, "seed", 0, "Sampling seed (0 = random unless --deterministic)")
	cmd.Flags().BoolVar(&f.deterministic, "deterministic", false, "Use a fixed seed")
	cmd.Flags().Uint32Var(&f.timeout, "timeout", 0, "Per-request timeout in seconds (0 = engine default)")
	cmd.Flags().BoolVar(&f.filter, "filter", false, "Apply the unsafe-content filter")
	cmd.Flags().BoolVar(&f.profanity, "profanity", false, "Mask profanity")
}

// runResult is the --json rendering of one generation.
type runResult struct {
	Text                string           `json:"text"`
	Code                types.ResultCode `json:"code"`
	TokenCount          uint32           `json:"token_count"`
	PromptTokenCount    uint32           `json:"prompt_token_count"`
	GenerationTime      float32          `json:"generation_time_seconds"`
	StopReason          types.StopReason `json:"stop_reason"`
	ContentFiltered     bool             `json:"content_filtered"`
	StopSequenceMatched string           `json:"stop_sequence_matched,omitempty"`
}

func newRunCmd(opts *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:     "run [prompt...]",
		Short:   "Load the model and generate text for one prompt",
		Example: "  narctl run -m models/tiny.gguf -n 64 \"Once upon a time\"",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.initEngine(cfg); err != nil {
				return err
			}
			defer opts.shutdownEngine()
			return opts.generate(f, strings.Join(args, " "))
		},
	}
	addGenerateFlags(cmd, f)
	cmd.Flags().BoolVar(&f.stream, "stream", true, "Print text as it is generated")
	return cmd
}

func (o *options) generate(f *runFlags, prompt string) error {
	p := f.params(prompt)
	var (
		res  *types.GeneratedText
		code types.ResultCode
	)
	if f.stream && !o.jsonOut {
		var printed string
		res, code = nar.GenerateStreaming(p, func(partial string, _ uint32, _ bool, _ any) {
			// a filtered partial may rewrite text already printed; only
			// extensions are written
			if strings.HasPrefix(partial, printed) {
				fmt.Fprint(o.out, partial[len(printed):])
				printed = partial
			}
		}, nil)
		fmt.Fprintln(o.out)
	} else {
		res, code = nar.Generate(p)
	}
	defer nar.FreeGeneratedText(&res)
	if res != nil {
		o.log.Debug().Uint32("tokens", res.TokenCount).Stringer("stop", res.StopReason).Dur("dur", res.GenerationTime).Msg("generation finished")
	}
	if o.jsonOut && res != nil {
		if err := o.printJSON(runResult{
			Text:                res.Text(),
			Code:                code,
			TokenCount:          res.TokenCount,
			PromptTokenCount:    res.PromptTokenCount,
			GenerationTime:      res.GenerationTimeSeconds(),
			StopReason:          res.StopReason,
			ContentFiltered:     res.ContentFiltered,
			StopSequenceMatched: res.StopSequenceMatched,
		}); err != nil {
			return err
		}
	} else if !f.stream && res != nil {
		fmt.Fprintln(o.out, res.Text())
	}
	if code != types.Success {
		return codeError("generate", code, "")
	}
	return nil
}
