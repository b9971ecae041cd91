package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/giantswarm/classloader"
	"github.com/spf13/cobra"
)

func newLibrariesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "Load the libraries and print their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ml, err := a.open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, ml.Shutdown()) }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tLOADED\tCLASSES")
			for st := range ml.Libraries() {
				classes, err := classloader.AvailableClassesForLibrary[any](ml, st.Path)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%v\t%d\n", st.Path, st.Loaded, len(classes))
			}
			return w.Flush()
		},
	}
}

func newClassesCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the classes the libraries register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ml, err := a.open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, ml.Shutdown()) }()

			libs := ml.RegisteredLibraries()
			if from != "" {
				libs = []string{from}
			}
			for _, lib := range libs {
				classes, err := classloader.AvailableClassesForLibrary[any](ml, lib)
				if err != nil {
					return err
				}
				for _, c := range classes {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", lib, c)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "only list classes of this library")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "create CLASS",
		Short: "Instantiate a class and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ml, err := a.open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, ml.Shutdown()) }()

			var inst *classloader.Instance[any]
			if from == "" {
				inst, err = classloader.CreateInstance[any](ml, args[0])
			} else {
				inst, err = classloader.CreateInstanceFrom[any](ml, args[0], from)
			}
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, inst.Release()) }()

			obj, err := inst.Object()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s from %s: %T %v\n",
				inst.ID(), inst.ClassName(), inst.Library(), obj, obj)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "library to create the class from")
	return cmd
}
