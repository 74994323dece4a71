package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewSagaCmd создаёт группу команд для просмотра саг.
func NewSagaCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saga",
		Short: "Inspect registered sagas",
	}

	cmd.AddCommand(
		newSagaListCmd(clientFn, outputFn),
		newSagaShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newSagaListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sagas",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sagas, err := client.ListSagas()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "STEPS"}
			rows := make([][]string, len(sagas))
			for i, s := range sagas {
				rows[i] = []string{s.Name, strconv.Itoa(len(s.Steps))}
			}

			out.Print(headers, rows, sagas)
			return nil
		},
	}
}

func newSagaShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show saga steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			saga, err := client.GetSaga(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"NAME", "STEPS"},
				[][]string{{saga.Name, strings.Join(saga.Steps, " -> ")}},
				saga,
			)
			return nil
		},
	}
}
