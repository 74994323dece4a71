package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Manage saga executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionStartCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionStepsCmd(clientFn, outputFn),
		newExecutionEventCmd(clientFn, outputFn),
		newExecutionCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var saga string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execs, err := client.ListExecutions(ListExecutionsOpts{
				Saga:   saga,
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "SAGA", "STATUS", "STEP", "CREATED"}
			rows := make([][]string, len(execs))
			for i, e := range execs {
				rows[i] = []string{e.ID, e.Saga, e.Status, strconv.Itoa(e.StepIndex), e.CreatedAt}
			}

			out.Print(headers, rows, execs)
			return nil
		},
	}

	cmd.Flags().StringVar(&saga, "saga", "", "Filter by saga name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RUNNING, WAITING, COMPLETED, FAILED, COMPENSATING, COMPENSATED, COMPENSATION_FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "start SAGA",
		Short: "Start a new execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := StartExecutionRequest{
				IdempotencyKey: idempotencyKey,
			}

			if len(inputs) > 0 {
				req.Input = make(map[string]any)
				for _, kv := range inputs {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
					}
					req.Input[parts[0]] = parts[1]
				}
			}

			exec, err := client.StartExecution(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution started: %s", exec.ID))
			out.Print(
				[]string{"ID", "SAGA", "STATUS", "STEP", "CREATED"},
				[][]string{{exec.ID, exec.Saga, exec.Status, strconv.Itoa(exec.StepIndex), exec.CreatedAt}},
				exec,
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Initial context values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for submit deduplication")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			waiting := ""
			if exec.Wait != nil {
				waiting = exec.Wait.EventType + " until " + exec.Wait.Deadline
			}

			out.Print(
				[]string{"ID", "SAGA", "STATUS", "STEP", "WAITING", "ERROR", "CREATED"},
				[][]string{{exec.ID, exec.Saga, exec.Status, strconv.Itoa(exec.StepIndex), waiting, exec.Error, exec.CreatedAt}},
				exec,
			)
			return nil
		},
	}
}

func newExecutionStepsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "steps ID",
		Short: "List step outcomes of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := client.ListSteps(args[0])
			if err != nil {
				return err
			}

			headers := []string{"#", "NAME", "STATUS", "ATTEMPTS"}
			rows := make([][]string, len(steps))
			for i, s := range steps {
				rows[i] = []string{strconv.Itoa(i), s.Name, s.Status, strconv.Itoa(s.Attempts)}
			}

			out.Print(headers, rows, steps)
			return nil
		},
	}
}

func newExecutionEventCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var payload []string

	cmd := &cobra.Command{
		Use:   "event ID EVENT_TYPE",
		Short: "Deliver an external event to a waiting execution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := EventRequest{EventType: args[1]}

			if len(payload) > 0 {
				req.Payload = make(map[string]any)
				for _, kv := range payload {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid payload format %q, expected KEY=VALUE", kv)
					}
					// bool-значения встречаются в решениях approve/reject
					switch parts[1] {
					case "true":
						req.Payload[parts[0]] = true
					case "false":
						req.Payload[parts[0]] = false
					default:
						req.Payload[parts[0]] = parts[1]
					}
				}
			}

			exec, err := client.SubmitEvent(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Event %s delivered to %s", args[1], exec.ID))
			out.Print(
				[]string{"ID", "SAGA", "STATUS", "STEP"},
				[][]string{{exec.ID, exec.Saga, exec.Status, strconv.Itoa(exec.StepIndex)}},
				exec,
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&payload, "payload", nil, "Event payload as KEY=VALUE (repeatable)")

	return cmd
}

func newExecutionCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Request cancellation of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.CancelExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Cancel requested: %s (status %s)", exec.ID, exec.Status))
			return nil
		},
	}
}
